package attrcache

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Subject is the domain record being serialized. SubjectID must be stable for
// the lifetime of the record; it is part of every cache key.
type Subject interface {
	SubjectID() string
}

// TypeNamer lets a subject choose the type segment of its cache keys. Subjects
// that do not implement it use their reflected type name.
type TypeNamer interface {
	CacheTypeName() string
}

// FieldReader lets a subject expose fields to columns, constant and volatile
// declarations without reflection.
type FieldReader interface {
	CacheField(name string) (any, bool)
}

// TypeName returns the type segment used in cache keys for subject.
func TypeName(subject Subject) string {
	if named, ok := subject.(TypeNamer); ok {
		return named.CacheTypeName()
	}
	t := reflect.TypeOf(subject)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// TypeOf returns the reflect.Type of T, for SubjectType and WithTypes.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type fieldKey struct {
	t    reflect.Type
	name string
}

// fieldIndex memoizes struct field lookups per (type, attribute).
var fieldIndex sync.Map

// fieldGetter returns a compute function that reads the named field.
func fieldGetter(name string) ComputeFunc {
	return func(_ context.Context, subject Subject) (any, error) {
		return fieldValue(subject, name)
	}
}

func fieldValue(subject Subject, name string) (any, error) {
	if reader, ok := subject.(FieldReader); ok {
		value, found := reader.CacheField(name)
		if !found {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, TypeName(subject), name)
		}
		return value, nil
	}

	v := reflect.ValueOf(subject)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, ErrNilSubject
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s.%s (not a struct)", ErrUnknownField, TypeName(subject), name)
	}

	key := fieldKey{t: v.Type(), name: name}
	idx, ok := fieldIndex.Load(key)
	if !ok {
		found, exists := lookupField(v.Type(), name)
		if !exists {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, TypeName(subject), name)
		}
		fieldIndex.Store(key, found)
		idx = found
	}
	fv, err := v.FieldByIndexErr(idx.([]int))
	if err != nil || !fv.CanInterface() {
		return nil, fmt.Errorf("%w: %s.%s is not readable", ErrUnknownField, TypeName(subject), name)
	}
	return fv.Interface(), nil
}

// lookupField matches the json tag name first, then the Go field name
// case-insensitively. Only exported fields are considered.
func lookupField(t reflect.Type, name string) ([]int, bool) {
	var fallback []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName == name {
				return f.Index, true
			}
			if tagName != "" {
				continue
			}
		}
		if fallback == nil && strings.EqualFold(f.Name, name) {
			fallback = f.Index
		}
	}
	return fallback, fallback != nil
}
