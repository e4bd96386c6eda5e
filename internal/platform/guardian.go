// Package platform holds the OS-facing collaborators: the panic password
// guardian, wallpaper access, browser launch and global hotkeys.
package platform

import (
	"errors"
	"fmt"

	"automata/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoPassword is returned when a password check is attempted with no hash
// configured.
var ErrNoPassword = errors.New("no panic password configured")

// Guardian checks the panic password against a bcrypt hash.
type Guardian struct {
	hash []byte
}

// NewGuardian creates a guardian for hash. An empty hash means no password.
func NewGuardian(hash string) *Guardian {
	return &Guardian{hash: []byte(hash)}
}

// HasPassword reports whether a hash is configured.
func (g *Guardian) HasPassword() bool {
	return len(g.hash) > 0
}

// Verify reports whether password matches the configured hash.
func (g *Guardian) Verify(password string) bool {
	if !g.HasPassword() {
		return false
	}
	err := bcrypt.CompareHashAndPassword(g.hash, []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		logging.PlatformWarn("panic password hash is unusable: %v", err)
	}
	return err == nil
}

// HashPassword returns the bcrypt hash stored in panic.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
