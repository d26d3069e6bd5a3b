package devserver

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/kkookk/kkookk/internal/api"
)

// SubmitMigration files a paper-card photo for review. A wallet may submit
// once per store.
func (s *Store) SubmitMigration(walletToken string, in api.CreateMigrationInput) (api.MigrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.walletLocked(walletToken)
	if err != nil {
		return api.MigrationRequest{}, err
	}
	photo := strings.TrimSpace(in.PhotoFileName)
	if photo == "" {
		return api.MigrationRequest{}, errBadRequest
	}
	shop, err := s.shopLocked(in.StoreID)
	if err != nil {
		return api.MigrationRequest{}, err
	}
	card, err := s.cardLocked(shop.ID)
	if err != nil {
		return api.MigrationRequest{}, err
	}
	for _, m := range s.st.Migrations {
		if m.WalletID == w.ID && m.StoreID == shop.ID {
			return api.MigrationRequest{}, errMigrationOpen
		}
	}

	created := &api.MigrationRequest{
		ID:             s.st.nextID(),
		WalletID:       w.ID,
		StoreID:        shop.ID,
		StoreName:      shop.Name,
		StampCardID:    card.ID,
		StampCardTitle: card.Title,
		PhotoURL:       "/uploads/" + path.Base(photo),
		Status:         statusSubmitted,
		CreatedAt:      api.At(s.now()),
	}
	s.st.Migrations = append(s.st.Migrations, created)
	slog.Info("migration request created", "id", created.ID, "wallet_id", w.ID, "store_id", shop.ID)
	return *created, nil
}

// ListMyMigrations returns the wallet's migration requests, newest first.
func (s *Store) ListMyMigrations(walletToken string) ([]api.MigrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.walletLocked(walletToken)
	if err != nil {
		return nil, err
	}
	out := make([]api.MigrationRequest, 0)
	for _, m := range s.st.Migrations {
		if m.WalletID == w.ID {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ListSubmittedMigrations returns a store's requests awaiting review, oldest first.
func (s *Store) ListSubmittedMigrations(ownerToken string, storeID int64) ([]api.MigrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorizeShopLocked(ownerToken, storeID); err != nil {
		return nil, err
	}
	out := make([]api.MigrationRequest, 0)
	for _, m := range s.st.Migrations {
		if m.StoreID == storeID && m.Status == statusSubmitted {
			out = append(out, *m)
		}
	}
	return out, nil
}

// ApproveMigration credits approvedCount stamps, between zero and the card goal.
func (s *Store) ApproveMigration(ownerToken string, id int64, approvedCount int) (api.MigrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.submittedMigrationLocked(ownerToken, id)
	if err != nil {
		return api.MigrationRequest{}, err
	}
	card, err := s.cardLocked(m.StoreID)
	if err != nil {
		return api.MigrationRequest{}, err
	}
	if approvedCount < 0 || approvedCount > card.Goal {
		return api.MigrationRequest{}, errMigrationCount
	}
	if approvedCount > 0 {
		s.addStampsLocked(m.WalletID, card, approvedCount, "MIGRATED", fmt.Sprintf("migration-%d", m.ID))
	}
	n := approvedCount
	m.Status = statusApproved
	m.ApprovedStampCount = &n
	m.ProcessedAt = api.At(s.now())
	slog.Info("migration request approved", "id", id, "approved_count", approvedCount)
	return *m, nil
}

// RejectMigration declines a submitted request with reason.
func (s *Store) RejectMigration(ownerToken string, id int64, reason string) (api.MigrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.submittedMigrationLocked(ownerToken, id)
	if err != nil {
		return api.MigrationRequest{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultMigrationReject
	}
	m.Status = statusRejected
	m.RejectReason = reason
	m.ProcessedAt = api.At(s.now())
	slog.Info("migration request rejected", "id", id, "reason", reason)
	return *m, nil
}

func (s *Store) submittedMigrationLocked(ownerToken string, id int64) (*api.MigrationRequest, error) {
	var m *api.MigrationRequest
	for _, candidate := range s.st.Migrations {
		if candidate.ID == id {
			m = candidate
			break
		}
	}
	if m == nil {
		return nil, errMigrationMissing
	}
	if err := s.authorizeShopLocked(ownerToken, m.StoreID); err != nil {
		return nil, err
	}
	if m.Status != statusSubmitted {
		return nil, errMigrationDone
	}
	return m, nil
}
