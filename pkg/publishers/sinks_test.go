package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func testEvent() Event {
	return Event{ID: "evt-1", Method: "GET", URL: "/system/menu/list", StatusCode: 200, Outcome: OutcomeOK, TenantID: "1"}
}

func TestSQSPublisherSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   client,
		log:      noopLogger{},
	}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["outcome"]
	if !ok || aws.ToString(attr.StringValue) != OutcomeOK || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("outcome attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"id":"evt-1"`) {
		t.Fatalf("MessageBody missing event id: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherSkipsEmptyAttributes(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", client: client, log: noopLogger{}}

	evt := testEvent()
	evt.TenantID = ""
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if _, ok := client.input.MessageAttributes["tenant_id"]; ok {
		t.Fatalf("empty attributes must not be sent")
	}
}

func TestSQSPublisherGroupsFIFOQueuesByTenant(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", queueURL: "https://sqs.local/000/audit.fifo", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "tenant-1" {
		t.Fatalf("MessageGroupId = %q", got)
	}
	if got := aws.ToString(client.input.MessageDeduplicationId); got != "evt-1" {
		t.Fatalf("MessageDeduplicationId = %q", got)
	}

	standard := &fakeSQSClient{}
	pub = &sqsPublisher{id: "queue", queueURL: "https://sqs.local/000/audit", client: standard, log: noopLogger{}}
	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if standard.input.MessageGroupId != nil || standard.input.MessageDeduplicationId != nil {
		t.Fatalf("standard queues must not carry FIFO fields")
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{id: "queue", client: &fakeSQSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestSNSPublisherSendSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "topic",
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      noopLogger{},
	}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["tenant_id"]
	if !ok || aws.ToString(attr.StringValue) != "1" {
		t.Fatalf("tenant_id attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"url":"/system/menu/list"`) {
		t.Fatalf("Message missing url: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	pub := &snsPublisher{id: "topic", client: &fakeSNSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
