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

	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/ports"
)

// envelopeStatus marks a record list that carries ciphertext instead of real
// run records.
const envelopeStatus = domain.RunStatus("encrypted")

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
	next   ports.HistoryStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts each script's
// record list with AES-GCM. On disk every script maps to a single opaque
// envelope record whose message field holds the ciphertext.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, history map[string][]domain.RunRecord) error {
	sealed := make(map[string][]domain.RunRecord, len(history))
	for name, records := range history {
		plainText, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to marshal records for %q: %w", name, err)
		}
		ciphertext, err := encrypt(plainText, m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt records for %q: %w", name, err)
		}
		sealed[name] = []domain.RunRecord{{
			ScriptName:   name,
			Status:       envelopeStatus,
			ErrorMessage: base64.StdEncoding.EncodeToString(ciphertext),
		}}
	}
	return m.next.Save(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context) (map[string][]domain.RunRecord, error) {
	sealed, err := m.next.Load(ctx)
	if err != nil {
		return nil, err
	}

	history := make(map[string][]domain.RunRecord, len(sealed))
	for name, envelope := range sealed {
		if len(envelope) != 1 || envelope[0].Status != envelopeStatus {
			// Plaintext written before encryption was enabled passes through.
			history[name] = envelope
			continue
		}
		ciphertext, err := base64.StdEncoding.DecodeString(envelope[0].ErrorMessage)
		if err != nil {
			return nil, fmt.Errorf("corrupt envelope for %q: %w", name, err)
		}
		plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt records for %q: %w", name, err)
		}
		var records []domain.RunRecord
		if err := json.Unmarshal(plainText, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decrypted records for %q: %w", name, err)
		}
		history[name] = records
	}
	return history, nil
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
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
