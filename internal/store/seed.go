package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the layout of LEIZI_SEED_FILE.
type seedFile struct {
	Config   map[string]any `yaml:"config"`
	Shortcut map[string]any `yaml:"shortcut"`
}

// Seed writes the documents found in the YAML file at path, but only those
// not stored yet. An empty path is a no-op.
func Seed(ctx context.Context, b Backend, path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for doc, value := range map[Document]map[string]any{
		DocConfig:   sf.Config,
		DocShortcut: sf.Shortcut,
	} {
		if value == nil {
			continue
		}
		if _, err := b.Load(ctx, doc); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("check %s: %w", doc, err)
		}
		body, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s seed: %w", doc, err)
		}
		if err := Set(ctx, b, doc, body); err != nil {
			return err
		}
		log.Printf("[store] seeded %s document from %s", doc, path)
	}
	return nil
}
