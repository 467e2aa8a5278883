package objectstore

import (
	"context"
	"sync"
)

// persistent key/value storage capability consumed by the identity
// provider. implementations must be safe for concurrent use.
type Storage interface {
	Load(ctx context.Context) (KeyValueStore, error)
}

type KeyValueStore interface {
	TryGet(ctx context.Context, key string) (string, bool, error)
	Add(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// process-lifetime storage, used in tests and as a fallback when no
// durable store is configured
type MemoryStorage struct {
	mutex  sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: map[string]string{},
	}
}

func (self *MemoryStorage) Load(ctx context.Context) (KeyValueStore, error) {
	return self, nil
}

func (self *MemoryStorage) TryGet(ctx context.Context, key string) (string, bool, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	value, ok := self.values[key]
	return value, ok, nil
}

func (self *MemoryStorage) Add(ctx context.Context, key string, value string) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	self.values[key] = value
	return nil
}

func (self *MemoryStorage) Remove(ctx context.Context, key string) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	delete(self.values, key)
	return nil
}
