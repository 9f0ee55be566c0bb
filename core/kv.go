package core

import "context"

// KVStore is the local key-value storage that survives between sessions
// of a single viewer. Keys are case-sensitive.
type KVStore interface {
	// Get returns the value stored under key. ok is false when the key is unset.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is a KVStore that lives only as long as the process.
type MemoryKV struct {
	m *SyncMap[string, string]
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: NewSyncMap[string, string]()}
}

func (kv *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := kv.m.Load(key)
	return v, ok, nil
}

func (kv *MemoryKV) Set(_ context.Context, key, value string) error {
	kv.m.Store(key, value)
	return nil
}
