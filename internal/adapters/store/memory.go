// Package store provides in-memory implementations of the document and
// realtime store ports. They are the default backend for development
// and tests; a managed backend can replace them behind the same ports.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
)

// Memory is a threadsafe in-memory DocumentStore. Atomicity is per
// document: every operation runs under the store mutex.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]core.Document

	// failing simulates an unreachable backend for tests.
	failing bool
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]core.Document)}
}

// SetFailing makes every subsequent operation return ErrUnavailable.
func (m *Memory) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

func (m *Memory) Get(ctx context.Context, collection, id string) (core.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failing {
		return nil, core.ErrUnavailable
	}
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return deepCopy(doc).(core.Document), nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc core.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return core.ErrUnavailable
	}
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]core.Document)
		m.collections[collection] = coll
	}
	coll[id] = deepCopy(doc).(core.Document)
	log.Debug().Str("module", "store.memory").Str("collection", collection).Str("id", id).Msg("set document")
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return core.ErrUnavailable
	}
	doc, ok := m.collections[collection][id]
	if !ok {
		return core.ErrNotFound
	}
	for path, value := range patch {
		applyPatch(doc, strings.Split(path, "."), value)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return core.ErrUnavailable
	}
	coll, ok := m.collections[collection]
	if !ok {
		return core.ErrNotFound
	}
	if _, ok := coll[id]; !ok {
		return core.ErrNotFound
	}
	delete(coll, id)
	log.Debug().Str("module", "store.memory").Str("collection", collection).Str("id", id).Msg("deleted document")
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, preds []core.Predicate, order *core.Order, limit int) ([]core.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failing {
		return nil, core.ErrUnavailable
	}
	var out []core.Document
	for _, doc := range m.collections[collection] {
		if matches(doc, preds) {
			out = append(out, deepCopy(doc).(core.Document))
		}
	}
	if order != nil {
		sort.SliceStable(out, func(i, j int) bool {
			less := compare(fieldAt(out[i], order.Field), fieldAt(out[j], order.Field)) < 0
			if order.Descending {
				return !less
			}
			return less
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// applyPatch walks the dotted path, materializing nested objects, and
// sets or deletes the leaf.
func applyPatch(node map[string]any, path []string, value any) {
	key := path[0]
	if len(path) == 1 {
		if _, del := value.(core.DeleteField); del {
			delete(node, key)
			return
		}
		node[key] = deepCopy(value)
		return
	}
	child, ok := node[key].(map[string]any)
	if !ok {
		if doc, isDoc := node[key].(core.Document); isDoc {
			child = map[string]any(doc)
		} else {
			child = make(map[string]any)
			node[key] = child
		}
	}
	applyPatch(child, path[1:], value)
}

func matches(doc core.Document, preds []core.Predicate) bool {
	for _, p := range preds {
		got := fieldAt(doc, p.Field)
		switch p.Op {
		case core.OpEqual:
			if got != p.Value {
				return false
			}
		case core.OpGreaterThan:
			if compare(got, p.Value) <= 0 {
				return false
			}
		case core.OpLessThan:
			if compare(got, p.Value) >= 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func fieldAt(doc core.Document, path string) any {
	var cur any = map[string]any(doc)
	for _, key := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			if d, isDoc := cur.(core.Document); isDoc {
				node = map[string]any(d)
			} else {
				return nil
			}
		}
		cur = node[key]
	}
	return cur
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case int:
		bv, _ := b.(int)
		return av - bv
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return 0
}

// deepCopy keeps callers from mutating stored documents through shared
// maps. Values other than maps and slices are copied by assignment.
func deepCopy(v any) any {
	switch tv := v.(type) {
	case core.Document:
		out := make(core.Document, len(tv))
		for k, val := range tv {
			out[k] = deepCopy(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, val := range tv {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
