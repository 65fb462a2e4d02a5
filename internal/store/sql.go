package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/crypto"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/database"
)

// SQLStore keeps documents in the documents table, encrypted with c.
type SQLStore struct {
	db *gorm.DB
	c  *crypto.Cipher
}

func NewSQLStore(db *gorm.DB, c *crypto.Cipher) *SQLStore {
	return &SQLStore{db: db, c: c}
}

func (s *SQLStore) Name() string { return "sqlite" }

func (s *SQLStore) Load(ctx context.Context, doc Document) ([]byte, error) {
	token, err := database.GetDocument(s.db.WithContext(ctx), string(doc))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plain, err := s.c.Decrypt(token)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", doc, err)
	}
	return []byte(plain), nil
}

func (s *SQLStore) Save(ctx context.Context, doc Document, body []byte) error {
	token, err := s.c.Encrypt(string(body))
	if err != nil {
		return err
	}
	return database.PutDocument(s.db.WithContext(ctx), string(doc), token)
}
