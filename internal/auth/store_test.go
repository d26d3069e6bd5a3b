package auth

import (
	"testing"
	"time"
)

func TestSetGetCredential(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	if err := SetCredential(RoleWallet, &Credential{Token: " dev-wallet-session "}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	got, err := GetCredential(RoleWallet)
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if got == nil {
		t.Fatal("expected credential, got nil")
	}
	if got.Token != "dev-wallet-session" {
		t.Fatalf("expected trimmed token, got %q", got.Token)
	}
	if got.Role != RoleWallet {
		t.Fatalf("expected role wallet, got %q", got.Role)
	}
	if got.SavedAt.IsZero() {
		t.Fatal("expected SavedAt to be set")
	}
}

func TestSessionSkipsExpired(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	if err := SetCredential(RoleWallet, &Credential{Token: "w"}); err != nil {
		t.Fatalf("SetCredential wallet: %v", err)
	}
	if err := SetCredential(RoleOwner, &Credential{Token: "o", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("SetCredential owner: %v", err)
	}

	s, err := Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s.WalletToken != "w" {
		t.Fatalf("expected wallet token, got %q", s.WalletToken)
	}
	if s.OwnerToken != "" {
		t.Fatalf("expected expired owner token to be dropped, got %q", s.OwnerToken)
	}
}

func TestDeleteCredential(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	if err := SetCredential(RoleOwner, &Credential{Token: "dev-owner-token"}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := DeleteCredential(RoleOwner); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}

	got, err := GetCredential(RoleOwner)
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil credential after delete, got %+v", got)
	}
}

func TestDeleteAllCredentials(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	if err := SetCredential(RoleWallet, &Credential{Token: "w"}); err != nil {
		t.Fatalf("SetCredential wallet: %v", err)
	}
	if err := SetCredential(RoleOwner, &Credential{Token: "o"}); err != nil {
		t.Fatalf("SetCredential owner: %v", err)
	}

	if err := DeleteAllCredentials(); err != nil {
		t.Fatalf("DeleteAllCredentials: %v", err)
	}

	store, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	if len(store.Credentials) != 0 {
		t.Fatalf("expected empty credentials, got %d", len(store.Credentials))
	}
}

func TestParseRoleAndMask(t *testing.T) {
	if r, err := ParseRole("Store"); err != nil || r != RoleOwner {
		t.Fatalf("expected owner, got %q %v", r, err)
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if got := Mask("dev-owner-token"); got != "***********oken" {
		t.Fatalf("unexpected mask %q", got)
	}
}
