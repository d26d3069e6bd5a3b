package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkookk/kkookk/internal/api"
)

// Role names which side of the counter a token belongs to.
type Role string

const (
	RoleWallet Role = "wallet"
	RoleOwner  Role = "owner"
)

// ParseRole accepts wallet/customer and owner/store.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wallet", "customer":
		return RoleWallet, nil
	case "owner", "store":
		return RoleOwner, nil
	}
	return "", fmt.Errorf("unknown role %q (want wallet or owner)", s)
}

// Credential stores one session token.
type Credential struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	SavedAt   time.Time `json:"saved_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Store is the on-disk auth container.
type Store struct {
	Credentials map[Role]*Credential `json:"credentials"`
}

func (c *Credential) IsExpired() bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// FilePath returns ~/.kkookk/auth.json.
func FilePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".kkookk", "auth.json")
}

// LoadStore loads auth store from disk.
func LoadStore() (*Store, error) {
	path := FilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{Credentials: map[Role]*Credential{}}, nil
		}
		return nil, err
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, err
	}
	if store.Credentials == nil {
		store.Credentials = map[Role]*Credential{}
	}
	return &store, nil
}

// SaveStore persists auth store to disk.
func SaveStore(store *Store) error {
	if store == nil {
		store = &Store{Credentials: map[Role]*Credential{}}
	}
	if store.Credentials == nil {
		store.Credentials = map[Role]*Credential{}
	}

	path := FilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// GetCredential retrieves the credential for role.
func GetCredential(role Role) (*Credential, error) {
	store, err := LoadStore()
	if err != nil {
		return nil, err
	}
	return store.Credentials[role], nil
}

// SetCredential saves the credential for role.
func SetCredential(role Role, cred *Credential) error {
	store, err := LoadStore()
	if err != nil {
		return err
	}
	if cred != nil {
		cred.Role = role
		cred.Token = strings.TrimSpace(cred.Token)
		if cred.SavedAt.IsZero() {
			cred.SavedAt = time.Now()
		}
	}
	store.Credentials[role] = cred
	return SaveStore(store)
}

// DeleteCredential removes the credential for role.
func DeleteCredential(role Role) error {
	store, err := LoadStore()
	if err != nil {
		return err
	}
	delete(store.Credentials, role)
	return SaveStore(store)
}

// DeleteAllCredentials clears auth store.
func DeleteAllCredentials() error {
	path := FilePath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Session builds the API session from stored, unexpired tokens. Missing roles
// leave the corresponding token empty; the client refuses those calls.
func Session() (api.Session, error) {
	store, err := LoadStore()
	if err != nil {
		return api.Session{}, err
	}
	var s api.Session
	if c := store.Credentials[RoleWallet]; c != nil && !c.IsExpired() {
		s.WalletToken = c.Token
	}
	if c := store.Credentials[RoleOwner]; c != nil && !c.IsExpired() {
		s.OwnerToken = c.Token
	}
	return s, nil
}

// Mask hides all but the last four characters of a token.
func Mask(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
