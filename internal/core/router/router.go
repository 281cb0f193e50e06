// Package router resolves the storage target for a paper's chunks from its
// topic label, remembering whether the store supports named databases.
package router

import (
	"context"
	"log"

	"github.com/gusmmm/docrag/internal/core"
)

// capability is the tagged outcome of the first named-database attempt.
type capability int

const (
	capUnknown capability = iota
	capSupported
	capUnsupported
)

// Router routes chunk insertion. One Router lives for the duration of a run;
// the capability result of the first probe is cached so a store that rejects
// named databases is never probed twice.
type Router struct {
	store             core.VectorStore
	defaultDB         string
	defaultCollection string
	cap               capability
}

func New(store core.VectorStore, defaultDB, defaultCollection string) *Router {
	return &Router{
		store:             store,
		defaultDB:         core.SanitizeName(defaultDB),
		defaultCollection: core.SanitizeName(defaultCollection),
	}
}

// Resolve picks the effective database/collection for a topic. Names are
// sanitized here, once, so the Target recorded as the meta location is the
// exact schema/table name the store creates.
//
// No topic: the default target, unmodified. With a topic: a database named
// after the topic when the store supports it, otherwise the default database
// with the collection suffixed by the topic so topical isolation survives at
// the collection level. Capability failures are recovered here and never
// surfaced to the caller.
func (r *Router) Resolve(ctx context.Context, topic string) core.Target {
	if topic == "" {
		if r.ensure(ctx, r.defaultDB) {
			return core.Target{Database: r.defaultDB, Collection: r.defaultCollection}
		}
		return core.Target{Collection: r.defaultCollection}
	}
	topic = core.SanitizeName(topic)
	if r.ensure(ctx, topic) {
		return core.Target{Database: topic, Collection: r.defaultCollection}
	}
	return core.Target{Collection: r.defaultCollection + "__" + topic}
}

// ensure creates the named database if the store supports it, caching the
// capability verdict for the rest of the run.
func (r *Router) ensure(ctx context.Context, name string) bool {
	if r.cap == capUnsupported {
		return false
	}
	if err := r.store.EnsureDatabase(ctx, name); err != nil {
		log.Printf("[warn] named databases unavailable (%v); falling back to default database", err)
		r.cap = capUnsupported
		return false
	}
	r.cap = capSupported
	return true
}
