package attrcache

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"strings"
	"sync"
)

const maxAttributeNameLength = 128

// Registry is the ordered set of attribute policies for one serializer.
//
// Register and ResolveAll may be called concurrently: a reopened registry can
// accept declarations while serializers built from it are resolving.
type Registry struct {
	name        string
	subjectType reflect.Type
	backend     Backend
	keyer       Keyer
	notifier    ChangeNotifier
	logger      *slog.Logger

	mu       sync.RWMutex
	order    []string
	policies map[string]Policy
	hooks    map[hookKey]func()
	closed   bool
}

func newRegistry(name string, cfg builderConfig) *Registry {
	return &Registry{
		name:     name,
		backend:  cfg.backend,
		keyer:    cfg.keyer,
		notifier: cfg.notifier,
		logger:   cfg.logger,
		policies: make(map[string]Policy),
		hooks:    make(map[hookKey]func()),
	}
}

// Name returns the serializer name the registry was built for.
func (r *Registry) Name() string { return r.name }

// SubjectType returns the type serializers bind to.
func (r *Registry) SubjectType() reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subjectType
}

// Keyer returns the key derivation used for every attribute.
func (r *Registry) Keyer() Keyer { return r.keyer }

// Register adds p, or merges it into the existing policy of the same name.
// Invalidation hooks for p's columns are subscribed before Register returns.
func (r *Registry) Register(p Policy) error {
	if err := r.validate(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("%w: registry %q is closed", ErrConfiguration, r.name)
	}
	if existing, ok := r.policies[p.name]; ok {
		r.policies[p.name] = existing.merge(p)
		r.logger.Debug("attrcache: policy merged",
			"serializer", r.name, "attribute", p.name, "kind", string(p.kind),
			"predicates", len(existing.predicates)+len(p.predicates))
	} else {
		r.order = append(r.order, p.name)
		r.policies[p.name] = p
		r.logger.Debug("attrcache: policy registered",
			"serializer", r.name, "attribute", p.name, "kind", string(p.kind))
	}
	for _, field := range p.columns {
		r.wireHookLocked(p.name, field)
	}
	return nil
}

func (r *Registry) validate(p Policy) error {
	if err := validateAttributeName(p.name); err != nil {
		return err
	}
	if p.compute == nil {
		return fmt.Errorf("%w: attribute %q has no compute function", ErrConfiguration, p.name)
	}
	if p.kind == KindComputed && len(p.columns) == 0 && len(p.predicates) == 0 && p.expiry <= 0 {
		return fmt.Errorf("%w: computed attribute %q needs DependsOn, RecomputeIf or ExpiresIn", ErrConfiguration, p.name)
	}
	if p.expiry < 0 {
		return fmt.Errorf("%w: attribute %q has negative expiry %s", ErrConfiguration, p.name, p.expiry)
	}
	for _, field := range p.columns {
		if err := validateAttributeName(field); err != nil {
			return err
		}
	}
	if len(p.columns) > 0 && r.notifier == nil {
		return fmt.Errorf("%w: attribute %q depends on %v but no change notifier is configured", ErrConfiguration, p.name, p.columns)
	}
	return nil
}

func validateAttributeName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: attribute name is empty", ErrConfiguration)
	case len(name) > maxAttributeNameLength:
		return fmt.Errorf("%w: attribute name %q exceeds %d bytes", ErrConfiguration, name, maxAttributeNameLength)
	case strings.ContainsAny(name, ": \t\r\n"):
		return fmt.Errorf("%w: attribute name %q contains whitespace or ':'", ErrConfiguration, name)
	}
	return nil
}

// Lookup returns the current policy for name.
func (r *Registry) Lookup(name string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	return p, ok
}

// Names returns attribute names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of attributes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All iterates a snapshot of the policies in declaration order.
func (r *Registry) All() iter.Seq[Policy] {
	snapshot := r.snapshot()
	return func(yield func(Policy) bool) {
		for _, p := range snapshot {
			if !yield(p) {
				return
			}
		}
	}
}

func (r *Registry) snapshot() []Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Policy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.policies[name])
	}
	return out
}

// ResolveAll resolves every attribute for subject in declaration order. The
// first failing attribute aborts resolution and its error is returned.
func (r *Registry) ResolveAll(ctx context.Context, subject Subject) (*Attributes, error) {
	if isNilSubject(subject) {
		return nil, ErrNilSubject
	}
	policies := r.snapshot()
	out := newAttributes(len(policies))
	for _, p := range policies {
		value, err := p.Resolve(ctx, subject, r.backend, r.keyer)
		if err != nil {
			return nil, err
		}
		out.set(p.name, value)
	}
	return out, nil
}

// Evict deletes every cached attribute of subject.
func (r *Registry) Evict(ctx context.Context, subject Subject) error {
	if isNilSubject(subject) {
		return ErrNilSubject
	}
	typeName, id := TypeName(subject), subject.SubjectID()
	var errs []error
	for _, name := range r.Names() {
		key := r.keyer.Key(typeName, id, name)
		if err := r.backend.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("evict %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func isNilSubject(subject Subject) bool {
	if subject == nil {
		return true
	}
	v := reflect.ValueOf(subject)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}
