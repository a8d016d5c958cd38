package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidParam is returned when a parameter cannot be encoded into a query string.
var ErrInvalidParam = errors.New("invalid request parameter")

// componentEscaper turns url.QueryEscape output into encodeURIComponent output.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent escapes s the way browsers escape a URI component.
func EncodeComponent(s string) string {
	return componentEscaper.Replace(url.QueryEscape(s))
}

// BuildQuery flattens GET parameters into a raw query string. Scalars become
// key=value, objects and slices are flattened one level as key[sub]=value and
// nil values are skipped. Keys are emitted in sorted order. Top-level scalar
// keys are written as given; callers own their key names.
func BuildQuery(params Params) (string, error) {
	parts := make([]string, 0, len(params))
	for _, key := range sortedKeys(params) {
		v, ok := indirect(reflect.ValueOf(params[key]))
		if !ok {
			continue
		}
		if s, ok := scalarString(v); ok {
			parts = append(parts, key+"="+EncodeComponent(s))
			continue
		}
		subs, err := collectionEntries(v)
		if err != nil {
			return "", fmt.Errorf("param %q: %w", key, err)
		}
		for _, sub := range subs {
			sv, ok := indirect(sub.value)
			if !ok {
				continue
			}
			s, ok := scalarString(sv)
			if !ok {
				return "", fmt.Errorf("param %q[%s]: %w: nested %s values are not supported", key, sub.key, ErrInvalidParam, sv.Kind())
			}
			parts = append(parts, EncodeComponent(key+"["+sub.key+"]")+"="+EncodeComponent(s))
		}
	}
	return strings.Join(parts, "&"), nil
}

// appendQuery appends the flattened params to rawURL.
func appendQuery(rawURL string, params Params) (string, error) {
	query, err := BuildQuery(params)
	if err != nil {
		return "", err
	}
	if query == "" {
		return rawURL, nil
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + query, nil
}

// Stringify serializes arbitrarily nested values with bracket notation,
// e.g. a[b][0]=c. Nil values produce an empty value.
func Stringify(v any) (url.Values, error) {
	values := url.Values{}
	rv, ok := indirect(reflect.ValueOf(normalize(v)))
	if !ok {
		return values, nil
	}
	if _, scalar := scalarString(rv); scalar {
		return nil, fmt.Errorf("%w: top-level value must be an object, got %s", ErrInvalidParam, rv.Kind())
	}
	entries, err := collectionEntries(rv)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := stringifyInto(values, e.key, e.value); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func stringifyInto(values url.Values, prefix string, v reflect.Value) error {
	rv, ok := indirect(v)
	if !ok {
		values.Add(prefix, "")
		return nil
	}
	if s, ok := scalarString(rv); ok {
		values.Add(prefix, s)
		return nil
	}
	entries, err := collectionEntries(rv)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	for _, e := range entries {
		if err := stringifyInto(values, prefix+"["+e.key+"]", e.value); err != nil {
			return err
		}
	}
	return nil
}

// formBody renders a request body for application/x-www-form-urlencoded.
func formBody(data any) (string, error) {
	switch d := data.(type) {
	case nil:
		return "", nil
	case string:
		return d, nil
	case []byte:
		return string(d), nil
	case url.Values:
		return encodeForm(d), nil
	}
	values, err := Stringify(data)
	if err != nil {
		return "", err
	}
	return encodeForm(values), nil
}

// encodeForm is url.Values.Encode with spaces written as %20.
func encodeForm(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		key := formEscape(k)
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(formEscape(v))
		}
	}
	return b.String()
}

func formEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// normalize turns structs into generic maps through their JSON form.
func normalize(v any) any {
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok || rv.Kind() != reflect.Struct {
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return out
}

type entry struct {
	key   string
	value reflect.Value
}

// collectionEntries lists the members of a map or slice in a stable order.
func collectionEntries(v reflect.Value) ([]entry, error) {
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map keys must be strings, got %s", ErrInvalidParam, v.Type().Key())
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := make([]entry, 0, len(keys))
		for _, k := range keys {
			out = append(out, entry{key: k.String(), value: v.MapIndex(k)})
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		out := make([]entry, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			out = append(out, entry{key: strconv.Itoa(i), value: v.Index(i)})
		}
		return out, nil
	case reflect.Struct:
		if !v.CanInterface() {
			return nil, fmt.Errorf("%w: unexported struct value", ErrInvalidParam)
		}
		n := reflect.ValueOf(normalize(v.Interface()))
		if n.Kind() == reflect.Struct {
			return nil, fmt.Errorf("%w: struct %s is not JSON encodable", ErrInvalidParam, v.Type())
		}
		return collectionEntries(n)
	default:
		return nil, fmt.Errorf("%w: unsupported %s value", ErrInvalidParam, v.Kind())
	}
}

// indirect unwraps interfaces and pointers; ok is false for nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if (v.Kind() == reflect.Map || v.Kind() == reflect.Slice) && v.IsNil() {
		return reflect.Value{}, false
	}
	return v, true
}

func scalarString(v reflect.Value) (string, bool) {
	if v.CanInterface() {
		switch t := v.Interface().(type) {
		case json.Number:
			return t.String(), true
		case fmt.Stringer:
			if v.Kind() == reflect.Struct {
				return t.String(), true
			}
		}
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	}
	return "", false
}

func sortedKeys(params Params) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
