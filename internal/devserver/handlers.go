package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/version"
)

const headerWalletSession = "X-Wallet-Session"

type ctxKey int

const (
	walletTokenKey ctxKey = iota
	ownerTokenKey
)

type handler struct {
	store *Store
}

func (h *handler) walletAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(headerWalletSession))
		if _, err := h.store.WalletID(token); err != nil {
			writeStoreError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), walletTokenKey, token)))
	})
}

func (h *handler) ownerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || !h.store.IsOwner(token) {
			writeStoreError(w, r, errInvalidOwner)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerTokenKey, token)))
	})
}

func bearerToken(r *http.Request) string {
	got := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(got, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(got, prefix))
}

func walletToken(r *http.Request) string {
	token, _ := r.Context().Value(walletTokenKey).(string)
	return token
}

func ownerToken(r *http.Request) string {
	token, _ := r.Context().Value(ownerTokenKey).(string)
	return token
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"request_id": chimw.GetReqID(r.Context()),
	})
}

func (h *handler) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    version.Version,
		"commit":     version.Commit,
		"request_id": chimw.GetReqID(r.Context()),
	})
}

func (h *handler) createIssuance(w http.ResponseWriter, r *http.Request) {
	var in api.CreateIssuanceInput
	if !decode(w, r, &in) {
		return
	}
	req, replayed, err := h.store.CreateIssuance(walletToken(r), in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, createdStatus(replayed), req)
}

func (h *handler) getIssuance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := h.store.GetIssuance(id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) listPendingIssuance(w http.ResponseWriter, r *http.Request) {
	storeID, ok := queryStoreID(w, r)
	if !ok {
		return
	}
	rows, err := h.store.ListPendingIssuance(ownerToken(r), storeID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handler) approveIssuance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := h.store.ApproveIssuance(ownerToken(r), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) rejectIssuance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if !decodeOptional(w, r, &in) {
		return
	}
	req, err := h.store.RejectIssuance(ownerToken(r), id, in.Reason)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) listRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.store.ListRewards(walletToken(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *handler) stepUp(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OTPCode string `json:"otpCode"`
	}
	if !decode(w, r, &in) {
		return
	}
	res, err := h.store.StepUp(walletToken(r), in.OTPCode)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) createRedeemSession(w http.ResponseWriter, r *http.Request) {
	var in api.CreateRedeemSessionInput
	if !decode(w, r, &in) {
		return
	}
	sess, replayed, err := h.store.CreateRedeemSession(walletToken(r), in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, createdStatus(replayed), sess)
}

func (h *handler) completeRedemption(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.CompleteRedemption(chi.URLParam(r, "token"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handler) submitMigration(w http.ResponseWriter, r *http.Request) {
	var in api.CreateMigrationInput
	if !decode(w, r, &in) {
		return
	}
	m, err := h.store.SubmitMigration(walletToken(r), in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) listMyMigrations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListMyMigrations(walletToken(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handler) listSubmittedMigrations(w http.ResponseWriter, r *http.Request) {
	storeID, ok := queryStoreID(w, r)
	if !ok {
		return
	}
	rows, err := h.store.ListSubmittedMigrations(ownerToken(r), storeID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handler) approveMigration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		ApprovedCount *int `json:"approvedCount"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.ApprovedCount == nil {
		writeStoreError(w, r, errMigrationCount)
		return
	}
	m, err := h.store.ApproveMigration(ownerToken(r), id, *in.ApprovedCount)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) rejectMigration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if !decodeOptional(w, r, &in) {
		return
	}
	m, err := h.store.RejectMigration(ownerToken(r), id, in.Reason)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func createdStatus(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeStoreError(w, r, errBadRequest)
		return 0, false
	}
	return id, true
}

func queryStoreID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("storeId")), 10, 64)
	if err != nil || id <= 0 {
		writeStoreError(w, r, errBadRequest)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeStoreError(w, r, errBadRequest)
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeStoreError(w, r, errBadRequest)
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := chimw.GetReqID(r.Context())
	var e *Error
	if errors.As(err, &e) {
		writeError(w, requestID, e.Status, e.Code, e.Message)
		return
	}
	slog.Error("devserver request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
	writeError(w, requestID, http.StatusInternalServerError, "internal_error", "서버 오류가 발생했습니다.")
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":       code,
		"message":    message,
		"request_id": requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
