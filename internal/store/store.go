// Package store keeps the two client JSON documents (configuration and
// shortcuts). Documents are opaque JSON objects replaced whole on every
// write; the last writer wins.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Document names a stored JSON document.
type Document string

const (
	DocConfig   Document = "config"
	DocShortcut Document = "shortcut"
)

// Documents lists every known document.
var Documents = []Document{DocConfig, DocShortcut}

var (
	// ErrNotFound is returned by a Backend when the document was never written.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidDocument is returned by Set when the body is not a JSON object.
	ErrInvalidDocument = errors.New("document must be a JSON object")
	// ErrUnknownDocument is returned for names outside Documents.
	ErrUnknownDocument = errors.New("unknown document")
)

// emptyDocument is what Get returns for an absent document.
var emptyDocument = json.RawMessage(`{}`)

// Backend persists raw document bodies.
type Backend interface {
	Load(ctx context.Context, doc Document) ([]byte, error)
	Save(ctx context.Context, doc Document, body []byte) error
	Name() string
}

func (d Document) valid() bool {
	for _, known := range Documents {
		if d == known {
			return true
		}
	}
	return false
}

// Get returns the stored document, or {} when it is absent.
func Get(ctx context.Context, b Backend, doc Document) (json.RawMessage, error) {
	if !doc.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocument, doc)
	}
	body, err := b.Load(ctx, doc)
	if errors.Is(err, ErrNotFound) {
		return emptyDocument, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", doc, err)
	}
	return json.RawMessage(body), nil
}

// Set validates body as a JSON object and stores it compacted.
func Set(ctx context.Context, b Backend, doc Document, body []byte) error {
	if !doc.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDocument, doc)
	}
	compact, err := normalize(body)
	if err != nil {
		return err
	}
	if err := b.Save(ctx, doc, compact); err != nil {
		return fmt.Errorf("save %s: %w", doc, err)
	}
	return nil
}

// normalize checks that body is exactly one JSON object and compacts it.
// Member order is preserved.
func normalize(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, ErrInvalidDocument
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return buf.Bytes(), nil
}
