package natscache

import (
	"sort"
	"time"

	"github.com/nats-io/nats.go"
)

type stubEntry struct {
	key   string
	value []byte
	op    nats.KeyValueOp
}

func (e stubEntry) Bucket() string             { return "test" }
func (e stubEntry) Key() string                { return e.key }
func (e stubEntry) Value() []byte              { return e.value }
func (e stubEntry) Revision() uint64           { return 1 }
func (e stubEntry) Created() time.Time         { return time.Time{} }
func (e stubEntry) Delta() uint64              { return 0 }
func (e stubEntry) Operation() nats.KeyValueOp { return e.op }

type stubLister struct {
	keys chan string
}

func (l *stubLister) Keys() <-chan string { return l.keys }
func (l *stubLister) Stop() error         { return nil }
func (l *stubLister) Error() <-chan error {
	ch := make(chan error)
	close(ch)
	return ch
}

// stubKV is an in-memory KeyValue used for unit tests.
type stubKV struct {
	data map[string][]byte

	getErr  error
	putErr  error
	listErr error
	purged  []string
}

func newStubKV() *stubKV {
	return &stubKV{data: make(map[string][]byte)}
}

func (kv *stubKV) Get(key string) (nats.KeyValueEntry, error) {
	if kv.getErr != nil {
		return nil, kv.getErr
	}
	value, ok := kv.data[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	return stubEntry{key: key, value: value, op: nats.KeyValuePut}, nil
}

func (kv *stubKV) Put(key string, value []byte) (uint64, error) {
	if kv.putErr != nil {
		return 0, kv.putErr
	}
	kv.data[key] = append([]byte(nil), value...)
	return 1, nil
}

func (kv *stubKV) Delete(key string, _ ...nats.DeleteOpt) error {
	if _, ok := kv.data[key]; !ok {
		return nats.ErrKeyNotFound
	}
	delete(kv.data, key)
	return nil
}

func (kv *stubKV) Purge(key string, _ ...nats.DeleteOpt) error {
	kv.purged = append(kv.purged, key)
	delete(kv.data, key)
	return nil
}

func (kv *stubKV) ListKeys(_ ...nats.WatchOpt) (nats.KeyLister, error) {
	if kv.listErr != nil {
		return nil, kv.listErr
	}
	keys := make([]string, 0, len(kv.data))
	for key := range kv.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	ch := make(chan string, len(keys))
	for _, key := range keys {
		ch <- key
	}
	close(ch)
	return &stubLister{keys: ch}, nil
}
