package httpclient

import (
	"errors"
	"net/url"
	"testing"
)

func TestBuildQueryFlattensObjects(t *testing.T) {
	got, err := BuildQuery(Params{"a": 1, "b": map[string]any{"c": 2}})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if want := "a=1&b%5Bc%5D=2"; got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestBuildQuerySkipsNilValues(t *testing.T) {
	var missing *int
	got, err := BuildQuery(Params{
		"keep":  "x",
		"nil":   nil,
		"ptr":   missing,
		"obj":   map[string]any{"gone": nil, "here": true},
		"empty": map[string]any(nil),
	})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if want := "keep=x&obj%5Bhere%5D=true"; got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestBuildQueryEncodesLikeURIComponent(t *testing.T) {
	got, err := BuildQuery(Params{"name": "a b&c/d", "mark": "it's (ok)!*~"})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if want := "mark=it's%20(ok)!*~&name=a%20b%26c%2Fd"; got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestBuildQueryWritesTopLevelKeysVerbatim(t *testing.T) {
	got, err := BuildQuery(Params{"createTime[0]": "2024-01-01", "sort by": "id", "m": map[string]any{"k v": 1}})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if want := "createTime[0]=2024-01-01&m%5Bk%20v%5D=1&sort by=id"; got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestBuildQueryFlattensSlicesByIndex(t *testing.T) {
	got, err := BuildQuery(Params{"ids": []int{3, 4}})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if want := "ids%5B0%5D=3&ids%5B1%5D=4"; got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestBuildQueryRejectsNestedObjects(t *testing.T) {
	_, err := BuildQuery(Params{"a": map[string]any{"b": map[string]any{"c": 1}}})
	if !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}

func TestBuildQueryRejectsUnsupportedKinds(t *testing.T) {
	_, err := BuildQuery(Params{"fn": func() {}})
	if !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}

func TestAppendQueryKeepsExistingQuery(t *testing.T) {
	got, err := appendQuery("/system/menu/get?id=5", Params{"x": 1})
	if err != nil {
		t.Fatalf("appendQuery: %v", err)
	}
	if got != "/system/menu/get?id=5&x=1" {
		t.Fatalf("unexpected url %q", got)
	}

	got, err = appendQuery("/system/menu/list", Params{"n": nil})
	if err != nil {
		t.Fatalf("appendQuery: %v", err)
	}
	if got != "/system/menu/list" {
		t.Fatalf("expected url unchanged, got %q", got)
	}
}

func TestStringifyNestsWithBrackets(t *testing.T) {
	values, err := Stringify(map[string]any{
		"page":   map[string]any{"no": 1, "size": 10},
		"status": []string{"a", "b"},
		"name":   nil,
	})
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got := values.Get("page[no]"); got != "1" {
		t.Fatalf("page[no] = %q", got)
	}
	if got := values.Get("status[1]"); got != "b" {
		t.Fatalf("status[1] = %q", got)
	}
	if _, ok := values["name"]; !ok {
		t.Fatalf("expected nil value to be kept as empty")
	}
}

func TestFormBodyFromStruct(t *testing.T) {
	body, err := formBody(struct {
		Username string `json:"username"`
		Tenant   int    `json:"tenant"`
	}{Username: "admin user", Tenant: 1})
	if err != nil {
		t.Fatalf("formBody: %v", err)
	}
	if body != "tenant=1&username=admin%20user" {
		t.Fatalf("unexpected form body %q", body)
	}
}

func TestFormBodyEscapesKeysAndValuesWithPercentSpaces(t *testing.T) {
	body, err := formBody(map[string]any{
		"page": map[string]any{"no": 2},
		"q":    "it's a+b (x)",
	})
	if err != nil {
		t.Fatalf("formBody: %v", err)
	}
	if want := "page%5Bno%5D=2&q=it%27s%20a%2Bb%20%28x%29"; body != want {
		t.Fatalf("form body = %q, want %q", body, want)
	}

	values := url.Values{"display name": {"a b"}}
	if got, _ := formBody(values); got != "display%20name=a%20b" {
		t.Fatalf("url.Values body = %q", got)
	}
}

func TestFormBodyRejectsScalar(t *testing.T) {
	if _, err := formBody(42); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}
