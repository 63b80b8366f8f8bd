package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrInvalidKey         = errors.New("encryption key must be 64 hex characters (AES-256)")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrUnknownKeyVersion  = errors.New("unknown key version")
)

const keySize = 32

type Service interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
	RotateKey() error
	LastRotation() time.Time
}

// service seals with the newest key and keeps older keys for opening. Each
// ciphertext is prefixed with the version byte of the key that sealed it.
type service struct {
	mu           sync.RWMutex
	keys         []cipher.AEAD
	lastRotation time.Time
}

// NewService builds a keyring from hex encoded AES-256 keys, oldest first.
// The last key seals new data; the position of a key is its version, so
// operators rotate by appending. No keys generates a random one, which only
// suits tests and throwaway databases.
func NewService(hexKeys ...string) (Service, error) {
	if len(hexKeys) > 256 {
		return nil, fmt.Errorf("too many encryption keys: %d", len(hexKeys))
	}

	s := &service{lastRotation: time.Now()}
	for _, hexKey := range hexKeys {
		key, err := hex.DecodeString(hexKey)
		if err != nil || len(key) != keySize {
			return nil, ErrInvalidKey
		}
		gcm, err := newGCM(key)
		if err != nil {
			return nil, err
		}
		s.keys = append(s.keys, gcm)
	}

	if len(s.keys) == 0 {
		if err := s.RotateKey(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *service) Encrypt(plaintext []byte) (string, error) {
	s.mu.RLock()
	version := len(s.keys) - 1
	gcm := s.keys[version]
	s.mu.RUnlock()

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := make([]byte, 0, 1+len(nonce)+len(plaintext)+gcm.Overhead())
	sealed = append(sealed, byte(version))
	sealed = append(sealed, nonce...)
	sealed = gcm.Seal(sealed, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *service) Decrypt(encodedCiphertext string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encodedCiphertext)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < 1 {
		return nil, ErrCiphertextTooShort
	}

	version := int(ciphertext[0])
	s.mu.RLock()
	if version >= len(s.keys) {
		s.mu.RUnlock()
		return nil, ErrUnknownKeyVersion
	}
	gcm := s.keys[version]
	s.mu.RUnlock()

	ciphertext = ciphertext[1:]
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

// RotateKey adds a fresh random key used for all later encryptions. The new
// key lives only in memory; persistent rotation goes through configuration.
func (s *service) RotateKey() error {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.keys) > 255 {
		return fmt.Errorf("key ring full: %d keys", len(s.keys))
	}
	s.keys = append(s.keys, gcm)
	s.lastRotation = time.Now()
	return nil
}

func (s *service) LastRotation() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRotation
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
