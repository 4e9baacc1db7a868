package attrcache

import "testing"

func TestDefaultKeyerFormat(t *testing.T) {
	k := NewDefaultKeyer("")
	if k.Namespace() != DefaultNamespace {
		t.Fatalf("expected default namespace, got %q", k.Namespace())
	}
	if got := k.Key("User", "42", "email"); got != "attrcache:User:42:email" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := NewDefaultKeyer("app").Key("User", "42", "email"); got != "app:User:42:email" {
		t.Fatalf("unexpected namespaced key %q", got)
	}
}

func TestDefaultKeyerDeterministic(t *testing.T) {
	a, b := NewDefaultKeyer("ns"), NewDefaultKeyer("ns")
	if a.Key("T", "1", "x") != b.Key("T", "1", "x") {
		t.Fatalf("expected identical keys across keyers")
	}
}

func TestDefaultKeyerEscapesSeparators(t *testing.T) {
	k := NewDefaultKeyer("ns")
	left := k.Key("T", "a:b", "c")
	right := k.Key("T", "a", "b:c")
	if left == right {
		t.Fatalf("expected distinct keys, both %q", left)
	}
	if got := k.Key("T", "a:b", "c"); got != "ns:T:a%3Ab:c" {
		t.Fatalf("unexpected escaped key %q", got)
	}
	if k.Key("T", "%3A", "c") == k.Key("T", ":", "c") {
		t.Fatalf("escape character must itself be escaped")
	}
	if got := k.Key("T", "line\nbreak\r", "c"); got != "ns:T:line%0Abreak%0D:c" {
		t.Fatalf("unexpected newline escaping %q", got)
	}
}
