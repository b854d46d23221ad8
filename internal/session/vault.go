package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/barbosa7/bookdesk/internal/domain"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// vaultVersion is the on-disk schema version.
	vaultVersion = 1
)

// vaultJSON is the on-disk format for a persisted session. When a password is
// configured the session is encrypted; otherwise it is stored as plain JSON
// under the Session field.
type vaultJSON struct {
	Version    int             `json:"version"`
	Salt       string          `json:"salt,omitempty"`       // base64 standard encoding
	Nonce      string          `json:"nonce,omitempty"`      // base64 standard encoding
	Ciphertext string          `json:"ciphertext,omitempty"` // base64 standard encoding
	Session    *domain.Session `json:"session,omitempty"`
}

// FileVault persists the session to a single file, encrypted with
// PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM when a password is set.
// An empty password stores the token in the clear, which is only intended for
// local development.
type FileVault struct {
	path     string
	password string
}

// NewFileVault creates a FileVault writing to path.
func NewFileVault(path, password string) *FileVault {
	return &FileVault{path: path, password: password}
}

// Save writes the session to disk, creating parent directories as needed.
func (v *FileVault) Save(sess domain.Session) error {
	var blob vaultJSON

	if v.password == "" {
		blob = vaultJSON{Version: vaultVersion, Session: &sess}
	} else {
		plaintext, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("vault: marshal session: %w", err)
		}

		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("vault: generate salt: %w", err)
		}

		gcm, err := newGCM(v.password, salt)
		if err != nil {
			return err
		}

		nonce := make([]byte, gcm.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return fmt.Errorf("vault: generate nonce: %w", err)
		}

		ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
		blob = vaultJSON{
			Version:    vaultVersion,
			Salt:       base64.StdEncoding.EncodeToString(salt),
			Nonce:      base64.StdEncoding.EncodeToString(nonce),
			Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		}
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("vault: marshal: %w", err)
	}

	if dir := filepath.Dir(v.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("vault: create dir: %w", err)
		}
	}
	if err := os.WriteFile(v.path, data, 0o600); err != nil {
		return fmt.Errorf("vault: write %s: %w", v.path, err)
	}
	return nil
}

// Load reads a persisted session. ok is false when no vault file exists.
func (v *FileVault) Load() (domain.Session, bool, error) {
	data, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("vault: read %s: %w", v.path, err)
	}

	var blob vaultJSON
	if err := json.Unmarshal(data, &blob); err != nil {
		return domain.Session{}, false, fmt.Errorf("vault: parse %s: %w", v.path, err)
	}
	if blob.Version != vaultVersion {
		return domain.Session{}, false, fmt.Errorf("vault: unsupported version %d", blob.Version)
	}

	if blob.Session != nil {
		return *blob.Session, true, nil
	}

	if v.password == "" {
		return domain.Session{}, false, errors.New("vault: file is encrypted but no password configured")
	}

	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("vault: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(blob.Nonce)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("vault: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("vault: decode ciphertext: %w", err)
	}

	gcm, err := newGCM(v.password, salt)
	if err != nil {
		return domain.Session{}, false, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return domain.Session{}, false, errors.New("vault: decryption failed (wrong password or corrupted file)")
	}

	var sess domain.Session
	if err := json.Unmarshal(plaintext, &sess); err != nil {
		return domain.Session{}, false, fmt.Errorf("vault: parse session: %w", err)
	}
	return sess, true, nil
}

// Clear removes the vault file. Missing files are not an error.
func (v *FileVault) Clear() error {
	if err := os.Remove(v.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("vault: remove %s: %w", v.path, err)
	}
	return nil
}

// newGCM derives an AES-256 key from the password and salt and returns the
// GCM AEAD for it.
func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}
	return gcm, nil
}
