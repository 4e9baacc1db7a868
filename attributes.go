package attrcache

import (
	"bytes"
	"encoding/json"
	"maps"
)

// Attributes is the ordered name→value output of a serializer.
type Attributes struct {
	names  []string
	values map[string]any
}

func newAttributes(n int) *Attributes {
	return &Attributes{
		names:  make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

func (a *Attributes) set(name string, value any) {
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

// Names returns attribute names in output order.
func (a *Attributes) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Get returns the value of name.
func (a *Attributes) Get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Len reports the number of attributes.
func (a *Attributes) Len() int { return len(a.names) }

// Map returns an unordered copy of the values.
func (a *Attributes) Map() map[string]any {
	return maps.Clone(a.values)
}

// MarshalJSON encodes the attributes as a JSON object in output order.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range a.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(a.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
