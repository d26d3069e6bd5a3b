package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_WalletCallCarriesSessionHeader(t *testing.T) {
	var gotSession, gotRequestID, gotAgent string
	var gotBody CreateIssuanceInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get("X-Wallet-Session")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotAgent = r.Header.Get("User-Agent")
		assert.Equal(t, "/api/issuance", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"status":"PENDING","expiresAt":"2026-02-15T10:01:30","createdAt":"2026-02-15T10:00:00"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Session{WalletToken: "wallet-1"})
	out, err := c.CreateIssuance(context.Background(), CreateIssuanceInput{StoreID: 3, ClientRequestID: "abc"})
	require.NoError(t, err)

	assert.Equal(t, "wallet-1", gotSession)
	assert.NotEmpty(t, gotRequestID)
	assert.True(t, strings.HasPrefix(gotAgent, "kkookk-cli/"), gotAgent)
	assert.Equal(t, int64(3), gotBody.StoreID)
	assert.Equal(t, "abc", gotBody.ClientRequestID)
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, 90*time.Second, out.ExpiresAt.Sub(out.CreatedAt.Time))
}

func TestClient_OwnerCallUsesBearerToken(t *testing.T) {
	var gotAuth, gotStore string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotStore = r.URL.Query().Get("storeId")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", Session{OwnerToken: "owner-1"})
	rows, err := c.ListPendingIssuance(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "Bearer owner-1", gotAuth)
	assert.Equal(t, "42", gotStore)
}

func TestClient_MissingSessionFailsBeforeNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := New(srv.URL, Session{})
	_, err := c.ApproveIssuance(context.Background(), 1)
	require.ErrorIs(t, err, ErrMissingSession)
	assert.Equal(t, 0, calls)
}

func TestClient_ErrorBodyDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"IR003","message":"already processed"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Session{OwnerToken: "owner-1"})
	_, err := c.ApproveIssuance(context.Background(), 9)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.HTTPStatus())
	assert.Equal(t, "IR003", apiErr.Code)
	assert.Equal(t, "already processed", apiErr.UserMessage())
	assert.Equal(t, "/api/owner/issuance/9/approve", apiErr.Path)
}

func TestClient_ErrorWithoutBodyUsesDefaultMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	c := New(srv.URL, Session{OwnerToken: "owner-1"})
	_, err := c.RejectMigration(context.Background(), 2, "no")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, DefaultMessage(http.StatusGone), apiErr.UserMessage())
}

func TestClient_CompleteRedemptionEscapesToken(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"sessionToken":"a b","completed":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Session{})
	out, err := c.CompleteRedemption(context.Background(), "a b")
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, "/api/redemption/sessions/a%20b/complete", gotPath)
}
