package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const fifoSuffix = ".fifo"

// loadAWSConfig resolves the AWS config for a sink, preferring static
// credentials when the entry declares them.
func loadAWSConfig(ctx context.Context, region string, access AWSAccess) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if access.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access.AccessKeyID, access.SecretAccessKey, access.SessionToken),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// endpointOverride returns access.Endpoint as an SDK base endpoint, or nil.
func endpointOverride(access AWSAccess) *string {
	if access.Endpoint == "" {
		return nil
	}
	return aws.String(access.Endpoint)
}

// busMessage is an event rendered for SQS and SNS. Both SDKs declare their
// own MessageAttributeValue type, so attributes stay plain strings here.
type busMessage struct {
	body       string
	attributes map[string]string
	// groupID and dedupID are set for FIFO queues and topics only.
	groupID string
	dedupID string
}

func newBusMessage(evt Event, destination string) (busMessage, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return busMessage{}, fmt.Errorf("marshal event: %w", err)
	}
	msg := busMessage{body: string(payload), attributes: make(map[string]string)}
	for k, v := range evt.attributes() {
		if v != "" {
			msg.attributes[k] = v
		}
	}
	if strings.HasSuffix(destination, fifoSuffix) {
		msg.groupID = "tenant-" + evt.TenantID
		msg.dedupID = evt.ID
	}
	return msg, nil
}

// stringAttributes converts plain attributes into an SDK attribute map.
func stringAttributes[T any](attrs map[string]string, value func(*string) T) map[string]T {
	out := make(map[string]T, len(attrs))
	for k, v := range attrs {
		out[k] = value(aws.String(v))
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
