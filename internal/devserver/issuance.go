package devserver

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/kkookk/kkookk/internal/api"
)

const (
	statusPending   = "PENDING"
	statusApproved  = "APPROVED"
	statusRejected  = "REJECTED"
	statusExpired   = "EXPIRED"
	statusSubmitted = "SUBMITTED"
)

// CreateIssuance opens a pending stamp request. A repeated clientRequestId
// from the same wallet returns the original request with replayed set.
func (s *Store) CreateIssuance(walletToken string, in api.CreateIssuanceInput) (req api.IssuanceRequest, replayed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.walletLocked(walletToken)
	if err != nil {
		return api.IssuanceRequest{}, false, err
	}
	clientID := strings.TrimSpace(in.ClientRequestID)
	if clientID == "" {
		return api.IssuanceRequest{}, false, errBadRequest
	}
	shop, err := s.shopLocked(in.StoreID)
	if err != nil {
		return api.IssuanceRequest{}, false, err
	}
	card, err := s.cardLocked(shop.ID)
	if err != nil {
		return api.IssuanceRequest{}, false, err
	}

	for _, existing := range s.st.Issuances {
		if existing.ClientRequestID != clientID {
			continue
		}
		if existing.WalletID != w.ID || existing.StoreID != shop.ID {
			return api.IssuanceRequest{}, false, errDuplicateRequest
		}
		return *existing, true, nil
	}

	now := s.now()
	created := &api.IssuanceRequest{
		ID:              s.st.nextID(),
		WalletID:        w.ID,
		StoreID:         shop.ID,
		StoreName:       shop.Name,
		StampCardID:     card.ID,
		StampCardTitle:  card.Title,
		ClientRequestID: clientID,
		Status:          statusPending,
		ExpiresAt:       api.At(now.Add(s.issuanceTTL)),
		CreatedAt:       api.At(now),
	}
	s.st.Issuances = append(s.st.Issuances, created)
	slog.Info("issuance request created", "id", created.ID, "wallet_id", w.ID, "store_id", shop.ID)
	return *created, false, nil
}

// GetIssuance returns the current state of a request. It needs no session.
// A lapsed pending request is reported as expired.
func (s *Store) GetIssuance(id int64) (api.IssuanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.issuanceLocked(id)
	if req == nil {
		return api.IssuanceRequest{}, errIssuanceNotFound
	}
	now := s.now()
	if req.Status == statusPending && !req.ExpiresAt.After(now) {
		req.Status = statusExpired
		req.ProcessedAt = api.At(now)
	}
	return *req, nil
}

// ListPendingIssuance returns the unexpired pending requests of a store, oldest first.
func (s *Store) ListPendingIssuance(ownerToken string, storeID int64) ([]api.IssuanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.authorizeShopLocked(ownerToken, storeID); err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]api.IssuanceRequest, 0)
	for _, req := range s.st.Issuances {
		if req.StoreID == storeID && req.Status == statusPending && req.ExpiresAt.After(now) {
			out = append(out, *req)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt.Time) })
	return out, nil
}

// ApproveIssuance credits one stamp. Resolved requests yield a conflict and
// a lapsed request is marked expired and yields gone.
func (s *Store) ApproveIssuance(ownerToken string, id int64) (api.IssuanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.pendingIssuanceLocked(ownerToken, id)
	if err != nil {
		return api.IssuanceRequest{}, err
	}
	card, err := s.cardLocked(req.StoreID)
	if err != nil {
		return api.IssuanceRequest{}, err
	}
	s.addStampsLocked(req.WalletID, card, 1, "ISSUED", req.ClientRequestID)
	req.Status = statusApproved
	req.ProcessedAt = api.At(s.now())
	slog.Info("issuance request approved", "id", id, "wallet_id", req.WalletID)
	return *req, nil
}

// RejectIssuance declines a pending request with reason.
func (s *Store) RejectIssuance(ownerToken string, id int64, reason string) (api.IssuanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.pendingIssuanceLocked(ownerToken, id)
	if err != nil {
		return api.IssuanceRequest{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultIssuanceReject
	}
	req.Status = statusRejected
	req.RejectionReason = reason
	req.ProcessedAt = api.At(s.now())
	slog.Info("issuance request rejected", "id", id, "reason", reason)
	return *req, nil
}

func (s *Store) issuanceLocked(id int64) *api.IssuanceRequest {
	for _, req := range s.st.Issuances {
		if req.ID == id {
			return req
		}
	}
	return nil
}

func (s *Store) pendingIssuanceLocked(ownerToken string, id int64) (*api.IssuanceRequest, error) {
	req := s.issuanceLocked(id)
	if req == nil {
		return nil, errIssuanceNotFound
	}
	if err := s.authorizeShopLocked(ownerToken, req.StoreID); err != nil {
		return nil, err
	}
	if req.Status != statusPending {
		return nil, errIssuanceDone
	}
	now := s.now()
	if !req.ExpiresAt.After(now) {
		req.Status = statusExpired
		req.ProcessedAt = api.At(now)
		return nil, errIssuanceExpired
	}
	return req, nil
}
