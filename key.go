package attrcache

import "strings"

// DefaultNamespace is the leading key segment when no namespace is configured.
const DefaultNamespace = "attrcache"

// Keyer derives cache keys for subject attributes.
//
// Contract:
// - Determinism: the same (type, id, attribute) must always produce the same key.
// - Injectivity: distinct tuples must not produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(typeName, id, attribute string) string
}

// DefaultKeyer builds keys of the form <namespace>:<type>:<id>:<attribute>.
type DefaultKeyer struct {
	namespace string
}

// NewDefaultKeyer returns a keyer for namespace, or DefaultNamespace when empty.
func NewDefaultKeyer(namespace string) *DefaultKeyer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &DefaultKeyer{namespace: namespace}
}

// Namespace reports the leading key segment.
func (k *DefaultKeyer) Namespace() string {
	return k.namespace
}

// Key joins the escaped segments with ':'.
func (k *DefaultKeyer) Key(typeName, id, attribute string) string {
	var b strings.Builder
	b.Grow(len(k.namespace) + len(typeName) + len(id) + len(attribute) + 3)
	b.WriteString(escapeSegment(k.namespace))
	b.WriteByte(':')
	b.WriteString(escapeSegment(typeName))
	b.WriteByte(':')
	b.WriteString(escapeSegment(id))
	b.WriteByte(':')
	b.WriteString(escapeSegment(attribute))
	return b.String()
}

var segmentEscaper = strings.NewReplacer(
	"%", "%25",
	":", "%3A",
	"\n", "%0A",
	"\r", "%0D",
)

func escapeSegment(s string) string {
	if !strings.ContainsAny(s, "%:\n\r") {
		return s
	}
	return segmentEscaper.Replace(s)
}

var _ Keyer = (*DefaultKeyer)(nil)
