package core

import "context"

// Document is one stored record. Nested objects decode as
// map[string]any, same shape json.Unmarshal produces.
type Document map[string]any

// Predicate restricts a Query to documents whose field compares against
// Value. Field may be a dotted path into nested objects.
type Predicate struct {
	Field string
	Op    PredicateOp
	Value any
}

type PredicateOp string

const (
	OpEqual       PredicateOp = "=="
	OpGreaterThan PredicateOp = ">"
	OpLessThan    PredicateOp = "<"
)

// Order sorts Query results by a field.
type Order struct {
	Field      string
	Descending bool
}

// DocumentStore persists meeting and chat records.
//
// Update applies a partial patch: keys are dotted field paths into the
// document, values replace whatever was there. A DeleteField value
// removes the path. Atomicity is per document; cross-document
// consistency is not promised.
//
// Any operation may fail with ErrUnavailable; Get, Update and Delete
// fail with ErrNotFound when the document is absent.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, preds []Predicate, order *Order, limit int) ([]Document, error)
}

// DeleteField is the patch value that removes a field path in Update.
type DeleteField struct{}
