// Package vault stores document bytes encrypted at rest and returns opaque
// handles to the ciphertext.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/pkg/blobstore"
)

var (
	// ErrEncryption covers key misconfiguration and cipher failures.
	ErrEncryption = errors.New("vault encryption failure")
	// ErrStorage covers failures of the storage medium.
	ErrStorage = errors.New("vault storage failure")
)

const maxNameLength = 100

// Cipher seals and opens byte slices with the process key.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type Vault struct {
	cipher Cipher
	store  blobstore.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(cipher Cipher, store blobstore.Store, logger *slog.Logger) *Vault {
	return &Vault{
		cipher: cipher,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Store encrypts raw and writes it under a new handle of the form
// YYYY/MM/<uuid>-<name>.age. Plaintext never reaches the store.
func (v *Vault) Store(ctx context.Context, raw []byte, originalName string) (string, error) {
	sealed, err := v.cipher.Encrypt(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	handle := v.newHandle(originalName)
	if err := v.store.Put(ctx, handle, sealed); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	v.logger.DebugContext(ctx, "document sealed", "handle", handle, "bytes", len(raw))
	return handle, nil
}

// Retrieve reads and decrypts the blob behind handle.
func (v *Vault) Retrieve(ctx context.Context, handle string) ([]byte, error) {
	sealed, err := v.store.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrStorage, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	raw, err := v.cipher.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	return raw, nil
}

// Discard removes a blob whose document row was never committed.
func (v *Vault) Discard(ctx context.Context, handle string) error {
	if err := v.store.Delete(ctx, handle); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (v *Vault) newHandle(originalName string) string {
	now := v.now().UTC()
	return path.Join(
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		uuid.New().String()+"-"+SanitizeName(originalName)+".age",
	)
}

// SanitizeName reduces a client-supplied file name to a safe base name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		ok := r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_')
		if !ok {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	clean := strings.Trim(b.String(), "._")
	if len(clean) > maxNameLength {
		clean = clean[len(clean)-maxNameLength:]
	}
	if clean == "" {
		return "document"
	}
	return clean
}
