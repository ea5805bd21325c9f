package cache

import (
	"dagsync/cmd/dagsync/shared"

	gocache "github.com/patrickmn/go-cache"
)

// DagCache tracks the last applied DagInstance per dag name. Entries never
// expire; the version gate lives in the worker, the cache only stores.
type DagCache struct {
	store *gocache.Cache
}

func NewDagCache() *DagCache {
	return &DagCache{store: gocache.New(gocache.NoExpiration, 0)}
}

func (c *DagCache) Contains(name string) bool {
	_, found := c.store.Get(name)
	return found
}

func (c *DagCache) Get(name string) (*shared.DagInstance, bool) {
	v, found := c.store.Get(name)
	if !found {
		return nil, false
	}
	return v.(*shared.DagInstance), true
}

// GetVersion returns the instance only if the stored version matches exactly.
// Used to gate deletes against superseded versions.
func (c *DagCache) GetVersion(name string, version int64) (*shared.DagInstance, bool) {
	di, found := c.Get(name)
	if !found || di.Version != version {
		return nil, false
	}
	return di, true
}

func (c *DagCache) Put(name string, di *shared.DagInstance) {
	c.store.Set(name, di, gocache.NoExpiration)
}

// UnregisteredDagCache holds dags that were written to disk but not yet seen
// by the scheduler. The worker only ever upserts; the recheck loop drains it.
type UnregisteredDagCache struct {
	store *gocache.Cache
}

func NewUnregisteredDagCache() *UnregisteredDagCache {
	return &UnregisteredDagCache{store: gocache.New(gocache.NoExpiration, 0)}
}

func (c *UnregisteredDagCache) Put(dagID string, u *shared.UnregisteredDag) {
	c.store.Set(dagID, u, gocache.NoExpiration)
}

func (c *UnregisteredDagCache) Remove(dagID string) {
	c.store.Delete(dagID)
}

func (c *UnregisteredDagCache) Len() int {
	return c.store.ItemCount()
}

// List returns a point-in-time snapshot of all pending dags.
func (c *UnregisteredDagCache) List() []*shared.UnregisteredDag {
	items := c.store.Items()
	dags := make([]*shared.UnregisteredDag, 0, len(items))
	for _, item := range items {
		dags = append(dags, item.Object.(*shared.UnregisteredDag))
	}
	return dags
}
