package routeros

import (
	"context"
	"errors"
	"sync"

	"github.com/ardikapras/netbill/app/models"
)

// ErrNoActiveConfig is returned when no device configuration is marked active.
var ErrNoActiveConfig = errors.New("routeros: no active device configuration")

// ConfigSource loads the currently active device configuration.
type ConfigSource interface {
	GetActive() (*models.RouterConfig, error)
}

// Resolver hands out a client for the active device configuration. The client
// is resolved lazily on first use and cached until Invalidate is called, which
// the admin config handlers do whenever the active configuration changes.
type Resolver struct {
	source ConfigSource

	mu     sync.Mutex
	client *Client
}

// NewResolver creates a resolver over a configuration source.
func NewResolver(source ConfigSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the cached client, loading the active configuration first
// if needed.
func (r *Resolver) Resolve(ctx context.Context) (*Client, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	cfg, err := r.source.GetActive()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNoActiveConfig
	}

	r.client = NewClient(cfg)
	return r.client, nil
}

// Invalidate drops the cached client so the next Resolve re-reads the active
// configuration.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = nil
}
