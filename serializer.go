package attrcache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Serializer binds one subject to a registry. Serializers are cheap and meant
// to be created per request.
type Serializer struct {
	reg     *Registry
	subject Subject
}

// NewSerializer checks that subject matches the registry's subject type.
// A pointer to the declared type is accepted, and so is any implementation
// when the declared type is an interface.
func NewSerializer(reg *Registry, subject Subject) (*Serializer, error) {
	if isNilSubject(subject) {
		return nil, ErrNilSubject
	}
	want := reg.SubjectType()
	if want == nil {
		return nil, fmt.Errorf("%w: registry %q was never built; call Builder.Build or declare SubjectType",
			ErrSubjectTypeUnresolved, reg.Name())
	}
	got := reflect.TypeOf(subject)
	if !subjectTypeMatches(want, got) {
		return nil, fmt.Errorf("%w: serializer %q expects %s, got %s", ErrTypeMismatch, reg.Name(), want, got)
	}
	return &Serializer{reg: reg, subject: subject}, nil
}

func subjectTypeMatches(want, got reflect.Type) bool {
	if want.Kind() == reflect.Interface {
		return got.Implements(want)
	}
	if got == want {
		return true
	}
	if got.Kind() == reflect.Pointer && got.Elem() == want {
		return true
	}
	return want.Kind() == reflect.Pointer && want.Elem() == got
}

// Subject returns the bound subject.
func (s *Serializer) Subject() Subject { return s.subject }

// ToMap resolves every attribute of the bound subject.
func (s *Serializer) ToMap(ctx context.Context) (*Attributes, error) {
	return s.reg.ResolveAll(ctx, s.subject)
}

// ToJSON resolves and encodes the attributes in declaration order.
func (s *Serializer) ToJSON(ctx context.Context) ([]byte, error) {
	attrs, err := s.ToMap(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(attrs)
}

// MarshalJSON implements json.Marshaler with a background context.
func (s *Serializer) MarshalJSON() ([]byte, error) {
	return s.ToJSON(context.Background())
}
