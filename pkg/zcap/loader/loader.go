// Package loader defines the DocumentLoader collaborator the ZCAP engine
// injects for dereferencing capability URIs (spec §1/§6), plus a reference
// in-memory loader used by this module's own tests and HTTP API, and a
// caching decorator that callers may wrap around any loader (the engine
// itself does not wrap its loader in one).
package loader

import (
	"context"

	"github.com/relves/zcapcore/pkg/zcap"
)

// DocumentLoader dereferences a URI into a capability document, per spec
// §6: "function URI -> {document, documentUrl, contextUrl}". Network
// fetching policy is explicitly out of scope (spec §1); this interface is
// the seam the engine calls through.
type DocumentLoader interface {
	LoadCapability(ctx context.Context, id string) (*zcap.Capability, error)
}

// DocumentLoaderFunc adapts a plain function to the DocumentLoader
// interface.
type DocumentLoaderFunc func(ctx context.Context, id string) (*zcap.Capability, error)

// LoadCapability implements DocumentLoader.
func (f DocumentLoaderFunc) LoadCapability(ctx context.Context, id string) (*zcap.Capability, error) {
	return f(ctx, id)
}

// MapLoader is a reference DocumentLoader backed by an in-memory map,
// suitable for tests and for the per-request root set of pkg/zcap/httpapi. It is
// explicitly not a substitute for a real document loader — spec §1 puts
// network fetching policy out of scope.
type MapLoader struct {
	documents map[string]*zcap.Capability
}

// NewMapLoader builds a MapLoader from a set of capabilities, keyed by id.
func NewMapLoader(capabilities ...*zcap.Capability) *MapLoader {
	l := &MapLoader{documents: make(map[string]*zcap.Capability, len(capabilities))}
	for _, c := range capabilities {
		l.documents[c.ID] = c
	}
	return l
}

// Put adds or replaces a capability document.
func (l *MapLoader) Put(c *zcap.Capability) {
	l.documents[c.ID] = c
}

// LoadCapability implements DocumentLoader.
func (l *MapLoader) LoadCapability(_ context.Context, id string) (*zcap.Capability, error) {
	doc, ok := l.documents[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return doc, nil
}

// NotFoundError is returned by a DocumentLoader when no document is
// registered for the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "no document registered for id " + e.ID
}
