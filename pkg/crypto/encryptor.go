// Package crypto seals documents at rest with age (X25519).
package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"filippo.io/age"
)

var (
	// ErrNotSealed means the data does not start with an age header.
	ErrNotSealed = errors.New("data is not an age ciphertext")
	// ErrWrongKey means the ciphertext was sealed for another identity.
	ErrWrongKey = errors.New("ciphertext was sealed for a different key")
)

const ageHeader = "age-encryption.org/v1\n"

// keyFilePrefix marks ENCRYPTION_KEY values that point at an age-keygen file.
const keyFilePrefix = "file:"

// Encryptor seals document bytes with a single age identity held for the
// lifetime of the process.
type Encryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
	ephemeral bool
}

// NewEncryptor creates an Encryptor from an age identity string
// ("AGE-SECRET-KEY-1..."). An empty key generates a fresh identity and marks
// the encryptor ephemeral.
func NewEncryptor(key string) (*Encryptor, error) {
	if key == "" {
		identity, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
		return newEncryptor(identity, true), nil
	}

	identity, err := age.ParseX25519Identity(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return newEncryptor(identity, false), nil
}

// Load resolves the configured document key. value is either an identity
// string or "file:" followed by the path of an age-keygen key file. The key
// fingerprint is logged, and an ephemeral key is logged as a warning since
// documents sealed with it are lost on restart.
func Load(value string, logger *slog.Logger) (*Encryptor, error) {
	var (
		enc *Encryptor
		err error
	)
	if path, ok := strings.CutPrefix(value, keyFilePrefix); ok {
		enc, err = loadKeyFile(path)
	} else {
		enc, err = NewEncryptor(value)
	}
	if err != nil {
		return nil, err
	}

	if enc.Ephemeral() {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - stored documents will be unreadable after restart",
			"key_fingerprint", enc.Fingerprint())
	} else {
		logger.Info("document key loaded", "key_fingerprint", enc.Fingerprint())
	}
	return enc, nil
}

func loadKeyFile(path string) (*Encryptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening key file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", path, err)
	}
	if len(identities) != 1 {
		return nil, fmt.Errorf("key file %s holds %d identities, want 1", path, len(identities))
	}
	identity, ok := identities[0].(*age.X25519Identity)
	if !ok {
		return nil, fmt.Errorf("key file %s does not hold an X25519 identity", path)
	}
	return newEncryptor(identity, false), nil
}

func newEncryptor(identity *age.X25519Identity, ephemeral bool) *Encryptor {
	return &Encryptor{
		identity:  identity,
		recipient: identity.Recipient(),
		ephemeral: ephemeral,
	}
}

// GenerateKey returns a new age identity string.
func GenerateKey() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	return identity.String(), nil
}

// Ephemeral reports whether the key was generated at startup. Ciphertext
// written by an ephemeral encryptor cannot be read after a restart.
func (e *Encryptor) Ephemeral() bool {
	return e.ephemeral
}

// Fingerprint identifies the key in logs without revealing it.
func (e *Encryptor) Fingerprint() string {
	sum := sha256.Sum256([]byte(e.recipient.String()))
	return hex.EncodeToString(sum[:8])
}

// Encrypt seals plaintext for the configured identity.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing encryptor: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if !bytes.HasPrefix(ciphertext, []byte(ageHeader)) {
		return nil, ErrNotSealed
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, ErrWrongKey
		}
		return nil, fmt.Errorf("creating decryptor: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}

	return plaintext, nil
}

// GenerateRandomString returns n URL-safe random characters.
func GenerateRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
