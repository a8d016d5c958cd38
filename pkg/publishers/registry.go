package publishers

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)
	Types() []string
}

type builderRegistry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry holding builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &builderRegistry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry knows every sink type the console ships with.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:      newHTTPPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newGCPPubSubPublisher,
	})
}

func (r *builderRegistry) Register(typ string, builder Builder) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" || builder == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[typ] = builder
}

// PublisherFor builds the sink for cfg. Entries with an outcome filter are
// wrapped so only matching events reach the sink.
func (r *builderRegistry) PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}
	r.mu.RLock()
	build, ok := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no publisher registered for type %q (known: %s)", cfg.Type, strings.Join(r.Types(), ", "))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pub, err := build(ctx, cfg, log)
	if err != nil || len(cfg.Outcomes) == 0 {
		return pub, err
	}
	return &outcomeFilter{Publisher: pub, cfg: cfg}, nil
}

// Types lists the registered publisher types, sorted.
func (r *builderRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.builders))
	for typ := range r.builders {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// BuildAll builds every config. On failure the publishers built so far are
// closed before returning.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil {
		return nil, nil
	}
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.PublisherFor(ctx, cfg, log)
		if err != nil {
			if cerr := closeAll(pubs); cerr != nil {
				ensureLogger(log).WarnObj("publisher cleanup failed", "error", cerr.Error())
			}
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// outcomeFilter drops events whose outcome the sink did not subscribe to.
type outcomeFilter struct {
	Publisher
	cfg PublisherConfig
}

func (f *outcomeFilter) Publish(ctx context.Context, evt Event) error {
	if !f.cfg.Accepts(evt.Outcome) {
		return nil
	}
	return f.Publisher.Publish(ctx, evt)
}

func (f *outcomeFilter) Close() error {
	if c, ok := f.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
