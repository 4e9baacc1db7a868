package cachecore

// CloneBytes returns a copy of value so callers never share a driver's buffer.
func CloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone
}
