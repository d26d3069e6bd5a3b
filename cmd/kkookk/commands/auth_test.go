package commands

import (
	"strings"
	"testing"

	"github.com/kkookk/kkookk/internal/auth"
)

func TestAuthLoginStatusLogout(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, NewAuthCmd(), "login", "--role", "customer", "--token", "tok-wallet-1234")
	if err != nil {
		t.Fatalf("auth login: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "saved") {
		t.Fatalf("expected login output to contain saved, got: %s", out)
	}

	cred, err := auth.GetCredential(auth.RoleWallet)
	if err != nil {
		t.Fatalf("auth.GetCredential: %v", err)
	}
	if cred == nil || cred.Token != "tok-wallet-1234" {
		t.Fatalf("expected stored wallet token, got %+v", cred)
	}

	out, err = execute(t, NewAuthCmd(), "status")
	if err != nil {
		t.Fatalf("auth status: %v", err)
	}
	if !strings.Contains(out, "wallet") || !strings.Contains(out, "1234") || strings.Contains(out, "tok-wallet") {
		t.Fatalf("expected masked wallet session, got: %s", out)
	}

	out, err = execute(t, NewAuthCmd(), "logout", "--role", "wallet")
	if err != nil {
		t.Fatalf("auth logout: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "logged out") {
		t.Fatalf("expected logout output, got: %s", out)
	}

	cred, err = auth.GetCredential(auth.RoleWallet)
	if err != nil {
		t.Fatalf("auth.GetCredential after logout: %v", err)
	}
	if cred != nil {
		t.Fatalf("expected credential removed, got %+v", cred)
	}
}

func TestAuthLoginRejectsBadInput(t *testing.T) {
	isolateHome(t)

	if _, err := execute(t, NewAuthCmd(), "login", "--role", "owner"); err == nil {
		t.Fatal("expected login to fail without token")
	}
	if _, err := execute(t, NewAuthCmd(), "login", "--role", "admin", "--token", "x"); err == nil {
		t.Fatal("expected login to fail for unknown role")
	}
}
