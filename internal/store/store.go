// Package store persists configuration documents and connects them to the
// action editor.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamhook/streamhook/internal/config"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
)

// ErrNotFound indicates that no document has been saved yet.
var ErrNotFound = errors.New("configuration document not found")

// Store loads and saves whole configuration documents. Implementations must
// be safe for concurrent use and must never hand out or retain references
// shared with the caller.
type Store interface {
	// Load returns the stored document, or an error wrapping ErrNotFound.
	Load(ctx context.Context) (*config.Document, error)
	// Save replaces the stored document.
	Save(ctx context.Context, doc *config.Document) error
	// Close releases any resources held by the store.
	Close() error
}

// Watcher is implemented by stores that can report changes made by other
// processes. fn only ever receives valid documents. Calls to fn are made one
// at a time and never after Watch has returned.
type Watcher interface {
	Watch(ctx context.Context, fn func(*config.Document)) error
}

// LoadOrNew loads the stored document, falling back to an empty one when
// nothing has been saved yet.
func LoadOrNew(ctx context.Context, s Store) (*config.Document, error) {
	doc, err := s.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return config.NewDocument(), nil
	}
	return doc, err
}

// validate refuses an invalid doc with a ConfigError wrapping the
// ValidationError. target names the destination in the message.
func validate(doc *config.Document, target string) error {
	errs := config.ValidateDocument(doc)
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Error())
	}
	return shErrors.NewConfigError(
		fmt.Sprintf("refusing to save invalid configuration to '%s'", target),
		shErrors.NewValidationFailure("configuration", messages),
	)
}

// encode validates doc and renders it for storage at target.
func encode(doc *config.Document, target string) ([]byte, error) {
	if err := validate(doc, target); err != nil {
		return nil, err
	}
	return config.Marshal(doc)
}
