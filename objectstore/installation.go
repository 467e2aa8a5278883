package objectstore

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

const InstallationIdStorageKey = "installationId"

// supplies the stable per-installation identifier sent with every
// command. the identifier is lazily minted, cached in memory, and
// persisted via the storage capability.
//
// the mutex guards only the in-memory cache. the storage round-trip
// is never performed under lock; a cold cache resolves single-flight,
// with concurrent callers waiting on the in-flight resolution.
type InstallationIdProvider struct {
	storage Storage

	mutex     sync.Mutex
	current   *Id
	resolving chan struct{}
}

func NewInstallationIdProvider(storage Storage) *InstallationIdProvider {
	return &InstallationIdProvider{
		storage: storage,
	}
}

func (self *InstallationIdProvider) Get(ctx context.Context) (Id, error) {
	for {
		self.mutex.Lock()
		if self.current != nil {
			id := *self.current
			self.mutex.Unlock()
			return id, nil
		}
		if self.resolving != nil {
			resolving := self.resolving
			self.mutex.Unlock()
			select {
			case <-resolving:
				// re-check. the resolver may have failed.
				continue
			case <-ctx.Done():
				return Id{}, ctx.Err()
			}
		}
		resolving := make(chan struct{})
		self.resolving = resolving
		self.mutex.Unlock()

		id, err := self.resolve(ctx)

		self.mutex.Lock()
		if err == nil {
			self.current = &id
		}
		self.resolving = nil
		self.mutex.Unlock()
		close(resolving)

		return id, err
	}
}

// loads the persisted identifier, minting and persisting a new one on
// absence or parse failure. storage errors propagate as-is, no retry.
func (self *InstallationIdProvider) resolve(ctx context.Context) (Id, error) {
	store, err := self.storage.Load(ctx)
	if err != nil {
		return Id{}, err
	}

	value, ok, err := store.TryGet(ctx, InstallationIdStorageKey)
	if err != nil {
		return Id{}, err
	}
	if ok {
		if id, err := ParseId(value); err == nil {
			return id, nil
		}
		glog.Warningf("[install]unparseable installation id %q\n", value)
	}

	id := NewId()
	if err := store.Add(ctx, InstallationIdStorageKey, id.String()); err != nil {
		return Id{}, err
	}
	glog.V(1).Infof("[install]minted installation id %s\n", id)
	return id, nil
}

// persists the given identifier, or removes the stored value entirely
// when given nil. the cache is updated to match.
func (self *InstallationIdProvider) Set(ctx context.Context, id *Id) error {
	store, err := self.storage.Load(ctx)
	if err != nil {
		return err
	}

	if id == nil {
		if err := store.Remove(ctx, InstallationIdStorageKey); err != nil {
			return err
		}
	} else {
		if err := store.Add(ctx, InstallationIdStorageKey, id.String()); err != nil {
			return err
		}
	}

	self.mutex.Lock()
	if id == nil {
		self.current = nil
	} else {
		current := *id
		self.current = &current
	}
	self.mutex.Unlock()
	return nil
}

// forces the next Get to mint a new identifier
func (self *InstallationIdProvider) Clear(ctx context.Context) error {
	return self.Set(ctx, nil)
}
