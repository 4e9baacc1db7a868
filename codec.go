package attrcache

import "encoding/json"

// Codec converts attribute values to and from the bytes a store holds.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(body []byte) (any, error)
}

// JSONCodec stores values as JSON. Decoded values take the generic JSON
// shapes: float64, string, bool, nil, []any and map[string]any.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode implements Codec.
func (JSONCodec) Decode(body []byte) (any, error) {
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Codec = JSONCodec{}
