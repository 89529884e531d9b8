package ml

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownDeployment = errors.New("unknown deployment")
	ErrRegistryClosed    = errors.New("registry closed")
)

// Registry owns every deployment the process serves. It is filled once at
// startup and emptied by Close at shutdown.
type Registry struct {
	mu          sync.RWMutex
	deployments map[string]*Deployment
	order       []string
	defaultName string
	closed      bool
}

// NewRegistry indexes deployments by name. An empty defaultName selects the first one.
func NewRegistry(defaultName string, deployments ...*Deployment) (*Registry, error) {
	if len(deployments) == 0 {
		return nil, errors.New("no deployments configured")
	}
	r := &Registry{deployments: make(map[string]*Deployment, len(deployments))}
	for _, d := range deployments {
		if _, dup := r.deployments[d.Name()]; dup {
			return nil, fmt.Errorf("duplicate deployment %q", d.Name())
		}
		r.deployments[d.Name()] = d
		r.order = append(r.order, d.Name())
	}
	if defaultName == "" {
		defaultName = r.order[0]
	}
	if _, ok := r.deployments[defaultName]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownDeployment, defaultName)
	}
	r.defaultName = defaultName
	return r, nil
}

// LoadRegistry loads every deployment concurrently. Any failure aborts startup.
func LoadRegistry(ctx context.Context, specs []DeploymentSpec, defaultName string) (*Registry, error) {
	loaded := make([]*Deployment, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := LoadDeployment(spec)
			if err != nil {
				return err
			}
			loaded[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewRegistry(defaultName, loaded...)
}

// Get returns the named deployment, or the default one for an empty name.
func (r *Registry) Get(name string) (*Deployment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if name == "" {
		name = r.defaultName
	}
	d, ok := r.deployments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeployment, name)
	}
	return d, nil
}

// Default returns the default deployment.
func (r *Registry) Default() (*Deployment, error) {
	return r.Get("")
}

// DefaultName returns the name Get uses for an empty lookup.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// List returns deployments in configuration order.
func (r *Registry) List() []*Deployment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	out := make([]*Deployment, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.deployments[name])
	}
	return out
}

// Len returns the number of deployments served.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0
	}
	return len(r.order)
}

// Close releases every deployment. Later lookups fail with ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deployments = nil
	r.order = nil
	r.closed = true
	return nil
}
