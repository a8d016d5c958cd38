package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
	TypeHTTP      = "http"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
	httpMaxRetries            = 5
)

var knownOutcomes = []string{OutcomeOK, OutcomeError, OutcomeCancelled}

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one audit sink declared in the publishers file.
type PublisherConfig struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	// Outcomes limits the sink to events with these outcomes. Empty means all.
	Outcomes []string `json:"outcomes" yaml:"outcomes"`

	SQS       *SQSPublisherConfig       `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig       `json:"sns" yaml:"sns"`
	GCPPubSub *GCPPubSubPublisherConfig `json:"gcp_pubsub" yaml:"gcp_pubsub"`
	HTTP      *HTTPPublisherConfig      `json:"http" yaml:"http"`
}

// AWSAccess overrides the default AWS credential chain and endpoint.
type AWSAccess struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig holds AWS SQS settings. A queue URL ending in ".fifo"
// gets per-tenant message groups.
type SQSPublisherConfig struct {
	QueueURL  string `json:"uri" yaml:"uri"`
	Region    string `json:"region" yaml:"region"`
	AWSAccess `json:",inline" yaml:",inline"`
}

// SNSPublisherConfig holds AWS SNS settings.
type SNSPublisherConfig struct {
	TopicARN  string `json:"topic_arn" yaml:"topic_arn"`
	Region    string `json:"region" yaml:"region"`
	AWSAccess `json:",inline" yaml:",inline"`
}

// GCPPubSubPublisherConfig holds Google Cloud Pub/Sub settings.
type GCPPubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	// Retries re-sends on 5xx and transport errors.
	Retries int `json:"retries" yaml:"retries"`
}

// ConfigRegistry is the validated content of a publishers file.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

// LoadRegistry reads a YAML or JSON publishers file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file configFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(raw, &file)
	default:
		return nil, fmt.Errorf("publishers file %q: unsupported extension (expected YAML or JSON)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{idx: make(map[string]int, len(file.Publishers))}
	for i, entry := range file.Publishers {
		cfg := sanitizePublisherConfig(entry)
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

// ByID returns the publisher config declared under id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every declared publisher in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return slices.Clone(r.publishers)
}

// Enabled returns the publishers not switched off.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Accepts reports whether events with outcome are routed to this sink.
func (cfg PublisherConfig) Accepts(outcome string) bool {
	return len(cfg.Outcomes) == 0 || slices.Contains(cfg.Outcomes, outcome)
}

func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}

	var outcomes []string
	for _, o := range cfg.Outcomes {
		o = strings.ToLower(strings.TrimSpace(o))
		if o != "" && !slices.Contains(outcomes, o) {
			outcomes = append(outcomes, o)
		}
	}
	cfg.Outcomes = outcomes

	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		c.AWSAccess = c.AWSAccess.trimmed()
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		c.AWSAccess = c.AWSAccess.trimmed()
		cfg.SNS = &c
	}
	if cfg.GCPPubSub != nil {
		c := *cfg.GCPPubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.Endpoint = strings.TrimSpace(c.Endpoint)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.GCPPubSub = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		headers := make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		c.Headers = headers
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		c.Retries = min(max(c.Retries, 0), httpMaxRetries)
		cfg.HTTP = &c
	}
	return cfg
}

func (a AWSAccess) trimmed() AWSAccess {
	return AWSAccess{
		Endpoint:        strings.TrimSpace(a.Endpoint),
		AccessKeyID:     strings.TrimSpace(a.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(a.SecretAccessKey),
		SessionToken:    strings.TrimSpace(a.SessionToken),
	}
}

// required returns an error naming the first empty field.
func required(id string, fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return fmt.Errorf("%s is required for publisher %q", f[0], id)
		}
	}
	return nil
}

func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	}
	for _, o := range cfg.Outcomes {
		if !slices.Contains(knownOutcomes, o) {
			return fmt.Errorf("unknown outcome %q for publisher %q (expected one of %s)", o, cfg.ID, strings.Join(knownOutcomes, ", "))
		}
	}

	switch cfg.Type {
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		if err := required(cfg.ID, [2]string{"sqs.uri", cfg.SQS.QueueURL}, [2]string{"sqs.region", cfg.SQS.Region}); err != nil {
			return err
		}
		return cfg.SQS.AWSAccess.validate(cfg.ID, TypeSQS)
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", cfg.ID)
		}
		if err := required(cfg.ID, [2]string{"sns.topic_arn", cfg.SNS.TopicARN}, [2]string{"sns.region", cfg.SNS.Region}); err != nil {
			return err
		}
		return cfg.SNS.AWSAccess.validate(cfg.ID, TypeSNS)
	case TypeGCPPubSub:
		if cfg.GCPPubSub == nil {
			return fmt.Errorf("gcp_pubsub config required for publisher %q", cfg.ID)
		}
		return required(cfg.ID,
			[2]string{"gcp_pubsub.project_id", cfg.GCPPubSub.ProjectID},
			[2]string{"gcp_pubsub.topic", cfg.GCPPubSub.Topic},
		)
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		return required(cfg.ID, [2]string{"http.url", cfg.HTTP.URL})
	default:
		return fmt.Errorf("unsupported type %q for publisher %q", cfg.Type, cfg.ID)
	}
}

// validate requires static credentials to come as a key pair.
func (a AWSAccess) validate(id, block string) error {
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", block, block, id)
	}
	return nil
}
