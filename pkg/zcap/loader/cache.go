package loader

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/relves/zcapcore/pkg/zcap"
)

// CachingDocumentLoader decorates a DocumentLoader with a bounded LRU
// cache, grounded on the teacher's use of hashicorp/golang-lru/v2 for its
// blob object cache (internal/storage/storacha/objstore.go). A caller that
// verifies many documents against the same roots can wrap its loader in
// one so that repeat fetches of an id are served from memory, without
// implementing the caller-owned document loader's own caching policy,
// which remains out of scope per spec §1. The engine does not wrap its
// loader itself; the chain dereferencer (§4.2) loads each root once per
// dereference.
type CachingDocumentLoader struct {
	inner DocumentLoader
	cache *lru.Cache[string, *zcap.Capability]
}

// NewCachingDocumentLoader wraps inner with an LRU cache of the given size.
func NewCachingDocumentLoader(inner DocumentLoader, size int) (*CachingDocumentLoader, error) {
	cache, err := lru.New[string, *zcap.Capability](size)
	if err != nil {
		return nil, err
	}
	return &CachingDocumentLoader{inner: inner, cache: cache}, nil
}

// LoadCapability implements DocumentLoader.
func (c *CachingDocumentLoader) LoadCapability(ctx context.Context, id string) (*zcap.Capability, error) {
	if cap, ok := c.cache.Get(id); ok {
		return cap, nil
	}
	cap, err := c.inner.LoadCapability(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, cap)
	return cap, nil
}
