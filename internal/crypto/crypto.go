// Package crypto encrypts stored documents with a fernet key. The key comes
// from LEIZI_ENCRYPTION_KEY, or is generated once and kept in the settings
// table.
package crypto

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
	"gorm.io/gorm"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/database"
)

const keySetting = "fernet_key"

var ErrInvalidToken = errors.New("decrypt: invalid token")

// Cipher loads its key lazily on first use and caches it.
type Cipher struct {
	db         *gorm.DB
	configured string

	mu  sync.Mutex
	key *fernet.Key
}

// New returns a Cipher keyed by configuredKey when set, otherwise by the key
// kept in db's settings table.
func New(db *gorm.DB, configuredKey string) *Cipher {
	return &Cipher{db: db, configured: configuredKey}
}

func (c *Cipher) getKey() (*fernet.Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != nil {
		return c.key, nil
	}

	if c.configured != "" {
		key, err := fernet.DecodeKey(c.configured)
		if err != nil {
			return nil, fmt.Errorf("decode LEIZI_ENCRYPTION_KEY: %w", err)
		}
		c.key = key
		return key, nil
	}

	keyStr, err := database.GetSetting(c.db, keySetting)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var k fernet.Key
		if err := k.Generate(); err != nil {
			return nil, fmt.Errorf("generate fernet key: %w", err)
		}
		if err := database.SetSetting(c.db, keySetting, k.Encode()); err != nil {
			return nil, fmt.Errorf("save fernet key: %w", err)
		}
		c.key = &k
		return &k, nil
	}
	// Anything else leaves the stored key alone; replacing it would orphan
	// every document encrypted so far.
	if err != nil {
		return nil, fmt.Errorf("load fernet key: %w", err)
	}

	key, err := fernet.DecodeKey(keyStr)
	if err != nil {
		return nil, fmt.Errorf("decode fernet key: %w", err)
	}
	c.key = key
	return key, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	key, err := c.getKey()
	if err != nil {
		return "", err
	}
	tok, err := fernet.EncryptAndSign([]byte(plaintext), key)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return string(tok), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	key, err := c.getKey()
	if err != nil {
		return "", err
	}
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), 0*time.Second, []*fernet.Key{key})
	if msg == nil {
		return "", ErrInvalidToken
	}
	return string(msg), nil
}
