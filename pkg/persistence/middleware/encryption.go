package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/ports"
	"github.com/aretw0/rules/pkg/schema"
)

// KeySize is the required key length (AES-256).
const KeySize = 32

// envelopePrefix marks encrypted values in the underlying store.
const envelopePrefix = "enc:v1:"

// ErrNotEncrypted is returned when a stored value carries no encrypted envelope.
var ErrNotEncrypted = errors.New("variable is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.VariableStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts variables using
// AES-GCM. The underlying store only sees a string envelope; names stay in the
// clear so List and Delete keep working.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, fmt.Errorf("active key must be %d bytes (AES-256), got %d", KeySize, len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("fallback key %d must be %d bytes (AES-256), got %d", i, KeySize, len(k))
		}
	}
	return func(next ports.VariableStore) ports.VariableStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

// DecodeKey parses a base64 encoded key.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes (AES-256), got %d", KeySize, len(key))
	}
	return key, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, v domain.Variable) error {
	plainText, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal variable %s: %w", v.Name, err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt variable %s: %w", v.Name, err)
	}

	return m.next.Save(ctx, domain.Variable{
		Name:  v.Name,
		Type:  schema.String(),
		Value: envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext),
	})
}

func (m *encryptionMiddleware) Load(ctx context.Context, name string) (domain.Variable, error) {
	envelope, err := m.next.Load(ctx, name)
	if err != nil {
		return domain.Variable{}, err
	}

	encoded, ok := envelope.Value.(string)
	if !ok || len(encoded) < len(envelopePrefix) || encoded[:len(envelopePrefix)] != envelopePrefix {
		return domain.Variable{}, fmt.Errorf("%s: %w", name, ErrNotEncrypted)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded[len(envelopePrefix):])
	if err != nil {
		return domain.Variable{}, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	// Try Active, then Fallback
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.Variable{}, fmt.Errorf("failed to decrypt variable %s: %w", name, err)
	}

	var v domain.Variable
	if err := json.Unmarshal(plainText, &v); err != nil {
		return domain.Variable{}, fmt.Errorf("failed to unmarshal decrypted variable %s: %w", name, err)
	}
	return v, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
