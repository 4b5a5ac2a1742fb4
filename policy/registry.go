// Package policy holds named retry policies.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hedeqiang/rebound/backoff"
	"github.com/hedeqiang/rebound/retry"
)

// ErrPolicyExists is returned when registering a name twice.
var ErrPolicyExists = errors.New("policy: already registered")

// Policy pairs a backoff configuration with an attempt limit under a name.
type Policy struct {
	Name string `yaml:"name"`

	// Backoff bounds the delays between attempts.
	Backoff backoff.Config `yaml:"backoff"`

	// MaxAttempts is the number of retries after the first call.
	// Negative retries until the context ends.
	MaxAttempts int `yaml:"max_attempts"`
}

// Strategy returns a fresh retry strategy for one Do call.
func (p Policy) Strategy(r backoff.Random) *retry.Backoff {
	return &retry.Backoff{
		MaxAttempts: p.MaxAttempts,
		Config:      p.Backoff,
		Random:      r,
	}
}

// Validate checks the name and the backoff bounds.
func (p Policy) Validate() error {
	if p.Name == "" {
		return errors.New("policy: name is required")
	}
	if err := p.Backoff.Validate(); err != nil {
		return fmt.Errorf("policy %q: %w", p.Name, err)
	}
	return nil
}

// Registry holds registered policies for lookup by name.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewRegistry creates an empty policy registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]Policy),
	}
}

// Register adds a policy to the registry. Returns an error if a policy with
// the same name is already registered.
func (r *Registry) Register(p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.policies[p.Name]; exists {
		return fmt.Errorf("%w: %q", ErrPolicyExists, p.Name)
	}
	r.policies[p.Name] = p
	return nil
}

// Get returns the policy with the given name.
func (r *Registry) Get(name string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	return p, ok
}

// All returns all registered policies sorted by name.
func (r *Registry) All() []Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Policy, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the names of all registered policies, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type nameKey struct{}

// WithName returns a copy of ctx carrying the policy name.
func WithName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, nameKey{}, name)
}

// NameFromContext returns the policy name stored by WithName, or "".
func NameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(nameKey{}).(string)
	return name
}
