package attrcache

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// ComputeFunc derives an attribute value from a subject.
type ComputeFunc func(ctx context.Context, subject Subject) (any, error)

// Predicate forces recomputation when it returns true.
type Predicate func(subject Subject) bool

// Kind records which declaration produced a policy.
type Kind string

const (
	KindColumns  Kind = "columns"
	KindConstant Kind = "constant"
	KindVolatile Kind = "volatile"
	KindComputed Kind = "computed"
)

// Policy is the caching rule for one output attribute. Policies are values;
// merging produces a new Policy rather than mutating either side.
type Policy struct {
	name       string
	kind       Kind
	predicates []Predicate
	expiry     time.Duration
	compute    ComputeFunc
	columns    []string
}

func always(Subject) bool { return true }

// ColumnsPolicy reads field name and relies on change hooks for invalidation.
func ColumnsPolicy(name string) Policy {
	return Policy{name: name, kind: KindColumns, compute: fieldGetter(name), columns: []string{name}}
}

// ConstantPolicy caches forever. A nil fn reads the same-named field.
func ConstantPolicy(name string, fn ComputeFunc) Policy {
	if fn == nil {
		fn = fieldGetter(name)
	}
	return Policy{name: name, kind: KindConstant, compute: fn}
}

// VolatilePolicy recomputes on every resolve. A nil fn reads the same-named field.
func VolatilePolicy(name string, fn ComputeFunc) Policy {
	if fn == nil {
		fn = fieldGetter(name)
	}
	return Policy{name: name, kind: KindVolatile, compute: fn, predicates: []Predicate{always}}
}

// ComputedPolicy builds a computed policy from its options. It does not
// validate; Builder.Computed rejects declarations without any trigger.
func ComputedPolicy(name string, fn ComputeFunc, opts ...ComputedOption) Policy {
	var o computedOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := Policy{name: name, kind: KindComputed, compute: fn, expiry: o.expiresIn}
	if o.recomputeIf != nil {
		p.predicates = []Predicate{o.recomputeIf}
	}
	for _, col := range o.columns {
		if !slices.Contains(p.columns, col) {
			p.columns = append(p.columns, col)
		}
	}
	return p
}

// Name returns the attribute name.
func (p Policy) Name() string { return p.name }

// Kind returns the kind of the latest declaration merged into p.
func (p Policy) Kind() Kind { return p.kind }

// Expiry returns the TTL applied to cached values; zero means none.
func (p Policy) Expiry() time.Duration { return p.expiry }

// Predicates returns a copy of the recompute predicates in declaration order.
func (p Policy) Predicates() []Predicate { return slices.Clone(p.predicates) }

// Columns returns the fields whose changes evict this attribute.
func (p Policy) Columns() []string { return slices.Clone(p.columns) }

// ForceRecompute reports whether any predicate fires for subject.
func (p Policy) ForceRecompute(subject Subject) bool {
	for _, pred := range p.predicates {
		if pred(subject) {
			return true
		}
	}
	return false
}

// Resolve returns the attribute value for subject, served from backend when
// cached and not forced, computed and stored otherwise.
func (p Policy) Resolve(ctx context.Context, subject Subject, backend Backend, keyer Keyer) (any, error) {
	force := p.ForceRecompute(subject)
	key := keyer.Key(TypeName(subject), subject.SubjectID(), p.name)
	value, err := backend.Fetch(ctx, key, p.expiry, force, func(ctx context.Context) (any, error) {
		return p.compute(ctx, subject)
	})
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", p.name, err)
	}
	return value, nil
}

// merge folds a redeclaration into p. Predicates accumulate and are never
// dropped; compute, expiry and kind come from next; columns are unioned.
func (p Policy) merge(next Policy) Policy {
	merged := Policy{
		name:    p.name,
		kind:    next.kind,
		expiry:  next.expiry,
		compute: next.compute,
	}
	merged.predicates = make([]Predicate, 0, len(p.predicates)+len(next.predicates))
	merged.predicates = append(merged.predicates, p.predicates...)
	merged.predicates = append(merged.predicates, next.predicates...)

	merged.columns = slices.Clone(p.columns)
	for _, col := range next.columns {
		if !slices.Contains(merged.columns, col) {
			merged.columns = append(merged.columns, col)
		}
	}
	return merged
}

// ComputedOption configures a computed declaration.
type ComputedOption func(*computedOptions)

type computedOptions struct {
	columns     []string
	recomputeIf Predicate
	expiresIn   time.Duration
	expirySet   bool
}

// DependsOn evicts the attribute whenever one of fields changes.
func DependsOn(fields ...string) ComputedOption {
	return func(o *computedOptions) {
		o.columns = append(o.columns, fields...)
	}
}

// RecomputeIf forces recomputation whenever pred returns true.
func RecomputeIf(pred Predicate) ComputedOption {
	return func(o *computedOptions) {
		o.recomputeIf = pred
	}
}

// ExpiresIn bounds the age of a cached value.
func ExpiresIn(ttl time.Duration) ComputedOption {
	return func(o *computedOptions) {
		o.expiresIn = ttl
		o.expirySet = true
	}
}
