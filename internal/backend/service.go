package backend

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned for unknown document ids.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidCollection is returned for empty or malformed collection names.
	ErrInvalidCollection = errors.New("invalid collection name")
)

// Document is one stored record.
type Document struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fields returns the document data with its id under "id".
func (d Document) Fields() map[string]any {
	out := make(map[string]any, len(d.Data)+1)
	for k, v := range d.Data {
		out[k] = v
	}
	out["id"] = d.ID
	return out
}

// Snapshot is the state of a collection at one point in time.
type Snapshot struct {
	Collection string
	Docs       []Document
}

// Service is the persistence boundary used by application code.
type Service interface {
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Update merges data into the document's top-level fields.
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
	// Watch calls fn with the current snapshot and after every change. The
	// returned function stops delivery.
	Watch(ctx context.Context, collection string, fn func(Snapshot)) (func(), error)
}

func validCollection(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/. \t\n")
}
