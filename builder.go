package attrcache

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

// serializerSuffix is stripped from a builder name to derive the subject type.
const serializerSuffix = "Serializer"

// Option configures a Builder.
type Option func(*builderConfig)

type builderConfig struct {
	backend  Backend
	keyer    Keyer
	notifier ChangeNotifier
	logger   *slog.Logger
	types    map[string]reflect.Type
}

// WithBackend sets the cache backend. Required.
func WithBackend(backend Backend) Option {
	return func(cfg *builderConfig) {
		cfg.backend = backend
	}
}

// WithNotifier sets the subject type's change notifier. Required as soon as
// any columns or DependsOn declaration is made.
func WithNotifier(notifier ChangeNotifier) Option {
	return func(cfg *builderConfig) {
		cfg.notifier = notifier
	}
}

// WithNamespace sets the leading cache-key segment of the default keyer.
func WithNamespace(namespace string) Option {
	return func(cfg *builderConfig) {
		cfg.keyer = NewDefaultKeyer(namespace)
	}
}

// WithKeyer replaces the key derivation entirely.
func WithKeyer(keyer Keyer) Option {
	return func(cfg *builderConfig) {
		cfg.keyer = keyer
	}
}

// WithLogger sets the logger used for registration and eviction events.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *builderConfig) {
		cfg.logger = logger
	}
}

// WithTypes indexes candidate subject types for name-based derivation.
// Each type is reachable by its bare name and its package-qualified name.
func WithTypes(types ...reflect.Type) Option {
	return func(cfg *builderConfig) {
		if cfg.types == nil {
			cfg.types = make(map[string]reflect.Type, len(types)*2)
		}
		for _, t := range types {
			if t == nil {
				continue
			}
			if t.Name() != "" {
				cfg.types[t.Name()] = t
			}
			cfg.types[t.String()] = t
		}
	}
}

// Builder collects declarations into a Registry. Each declaration is
// validated and registered immediately, so configuration errors surface at
// the call that caused them.
type Builder struct {
	reg      *Registry
	explicit reflect.Type
	types    map[string]reflect.Type
	err      error
}

// NewBuilder starts a registry for the serializer called name.
func NewBuilder(name string, opts ...Option) *Builder {
	cfg := builderConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.keyer == nil {
		cfg.keyer = NewDefaultKeyer("")
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	b := &Builder{reg: newRegistry(name, cfg), types: cfg.types}
	if cfg.backend == nil {
		b.err = fmt.Errorf("%w: serializer %q has no backend", ErrConfiguration, name)
	}
	return b
}

// Reopen returns a builder that adds declarations to an existing registry.
// Redeclared attributes merge with their current policies.
func Reopen(reg *Registry) *Builder {
	return &Builder{reg: reg, explicit: reg.SubjectType()}
}

// SubjectType declares the subject type explicitly. It takes precedence over
// name-based derivation.
func (b *Builder) SubjectType(t reflect.Type) *Builder {
	b.explicit = t
	return b
}

// Columns declares attributes read straight from the same-named fields and
// evicted whenever that field changes.
func (b *Builder) Columns(names ...string) error {
	for _, name := range names {
		if err := b.register(ColumnsPolicy(name)); err != nil {
			return err
		}
	}
	return nil
}

// Constant declares attributes read from the same-named fields and cached
// forever.
func (b *Builder) Constant(names ...string) error {
	for _, name := range names {
		if err := b.register(ConstantPolicy(name, nil)); err != nil {
			return err
		}
	}
	return nil
}

// ConstantFunc declares an attribute computed once by fn and cached forever.
func (b *Builder) ConstantFunc(name string, fn ComputeFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: constant attribute %q has nil compute function", ErrConfiguration, name)
	}
	return b.register(ConstantPolicy(name, fn))
}

// Volatile declares attributes read from the same-named fields on every
// resolve.
func (b *Builder) Volatile(names ...string) error {
	for _, name := range names {
		if err := b.register(VolatilePolicy(name, nil)); err != nil {
			return err
		}
	}
	return nil
}

// VolatileFunc declares an attribute recomputed by fn on every resolve.
func (b *Builder) VolatileFunc(name string, fn ComputeFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: volatile attribute %q has nil compute function", ErrConfiguration, name)
	}
	return b.register(VolatilePolicy(name, fn))
}

// Computed declares an attribute computed by fn. At least one of DependsOn,
// RecomputeIf or ExpiresIn is required: without any of them the value could
// never be invalidated.
func (b *Builder) Computed(name string, fn ComputeFunc, opts ...ComputedOption) error {
	if fn == nil {
		return fmt.Errorf("%w: computed attribute %q has nil compute function", ErrConfiguration, name)
	}
	var o computedOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.expirySet && o.expiresIn <= 0 {
		return fmt.Errorf("%w: computed attribute %q has non-positive ExpiresIn %s", ErrConfiguration, name, o.expiresIn)
	}
	return b.register(ComputedPolicy(name, fn, opts...))
}

func (b *Builder) register(p Policy) error {
	if b.err != nil {
		return b.err
	}
	return b.reg.Register(p)
}

// Build resolves the subject type and returns the registry.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := b.explicit
	if t == nil {
		derived, err := deriveSubjectType(b.reg.name, b.types)
		if err != nil {
			return nil, err
		}
		t = derived
	}
	b.reg.mu.Lock()
	b.reg.subjectType = t
	b.reg.mu.Unlock()
	return b.reg, nil
}

// deriveSubjectType maps "UserSerializer" to the indexed type named "User".
func deriveSubjectType(name string, types map[string]reflect.Type) (reflect.Type, error) {
	base, ok := strings.CutSuffix(name, serializerSuffix)
	if ok && base != "" && !strings.HasSuffix(base, ".") {
		if t, found := types[base]; found {
			return t, nil
		}
		return nil, fmt.Errorf("%w: no subject type named %q is registered for serializer %q; declare it explicitly with SubjectType",
			ErrSubjectTypeUnresolved, base, name)
	}
	return nil, fmt.Errorf("%w: cannot derive a subject type from serializer name %q; declare it explicitly with SubjectType",
		ErrSubjectTypeUnresolved, name)
}
