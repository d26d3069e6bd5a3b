package devserver

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kkookk/kkookk/internal/api"
)

const (
	DefaultIssuanceTTL = 90 * time.Second
	DefaultRedeemTTL   = 45 * time.Second
	stepUpWindow       = 10 * time.Minute
	rewardLifetime     = 30 * 24 * time.Hour

	// DevOTPCode is the only step-up code the reference backend accepts.
	DevOTPCode = "123456"
	// DevWalletToken and DevOwnerToken are seeded sessions for local use.
	DevWalletToken = "dev-wallet-session"
	DevOwnerToken  = "dev-owner-token"

	defaultIssuanceReject  = "거부됨"
	defaultMigrationReject = "반려됨"
)

// Shop is a store with its owner's session token.
type Shop struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	OwnerToken string `json:"ownerToken"`
}

// StampCard is the active card of a store.
type StampCard struct {
	ID         int64  `json:"id"`
	StoreID    int64  `json:"storeId"`
	Title      string `json:"title"`
	Goal       int    `json:"goal"`
	RewardName string `json:"rewardName"`
}

// Wallet is a customer identity.
type Wallet struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Token       string    `json:"token"`
	StepUpUntil time.Time `json:"stepUpUntil,omitempty"`
}

// StampEvent records every change to a wallet's stamp count.
type StampEvent struct {
	ID          int64     `json:"id"`
	WalletID    int64     `json:"walletId"`
	StoreID     int64     `json:"storeId"`
	StampCardID int64     `json:"stampCardId"`
	Type        string    `json:"type"`
	Delta       int       `json:"delta"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"createdAt"`
}

type redeemRecord struct {
	api.RedeemSession
	WalletID        int64  `json:"walletId"`
	ClientRequestID string `json:"clientRequestId"`
}

type state struct {
	Seq        int64                  `json:"seq"`
	Shops      []Shop                 `json:"stores"`
	Cards      []StampCard            `json:"stampCards"`
	Wallets    []*Wallet              `json:"wallets"`
	Stamps     map[string]int         `json:"stamps"`
	Issuances  []*api.IssuanceRequest `json:"issuances"`
	Sessions   []*redeemRecord        `json:"redeemSessions"`
	Rewards    []*api.RewardInstance  `json:"rewards"`
	Migrations []*api.MigrationRequest `json:"migrations"`
	Events     []StampEvent           `json:"events"`
}

// Store is the in-memory backend state. All methods are safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	issuanceTTL time.Duration
	redeemTTL   time.Duration
	st          state
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreClock injects the clock used for every timestamp and expiry.
func WithStoreClock(c clockwork.Clock) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTTLs overrides the issuance and redeem session lifetimes.
func WithTTLs(issuance, redeem time.Duration) StoreOption {
	return func(s *Store) {
		if issuance > 0 {
			s.issuanceTTL = issuance
		}
		if redeem > 0 {
			s.redeemTTL = redeem
		}
	}
}

// NewStore creates a seeded store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		clock:       clockwork.NewRealClock(),
		issuanceTTL: DefaultIssuanceTTL,
		redeemTTL:   DefaultRedeemTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.st = s.seed()
	return s
}

// Clock returns the store clock.
func (s *Store) Clock() clockwork.Clock { return s.clock }

// Reset drops all requests and restores the seed data.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = s.seed()
}

// Snapshot returns the full state as JSON.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.MarshalIndent(s.st, "", "  ")
}

func (s *Store) seed() state {
	now := s.clock.Now()
	st := state{
		Shops: []Shop{
			{ID: 1, Name: "꾹꾹 카페", OwnerToken: DevOwnerToken},
			{ID: 2, Name: "동네 빵집", OwnerToken: "dev-owner-token-2"},
		},
		Cards: []StampCard{
			{ID: 1, StoreID: 1, Title: "아메리카노 10잔", Goal: 10, RewardName: "아메리카노 1잔"},
			{ID: 2, StoreID: 2, Title: "식빵 8개", Goal: 8, RewardName: "식빵 1개"},
		},
		Wallets: []*Wallet{
			{ID: 1, Name: "dev customer", Token: DevWalletToken},
			{ID: 2, Name: "second customer", Token: "dev-wallet-session-2"},
		},
		Stamps: map[string]int{},
		Seq:    100,
	}
	st.Rewards = []*api.RewardInstance{{
		ID:             st.nextID(),
		WalletID:       1,
		StoreID:        1,
		StoreName:      "꾹꾹 카페",
		StampCardID:    1,
		StampCardTitle: "아메리카노 10잔",
		RewardName:     "아메리카노 1잔",
		Status:         "AVAILABLE",
		ExpiresAt:      api.At(now.Add(rewardLifetime)),
		CreatedAt:      api.At(now),
	}}
	return st
}

func (st *state) nextID() int64 {
	st.Seq++
	return st.Seq
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Store) walletLocked(token string) (*Wallet, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errInvalidSession
	}
	for _, w := range s.st.Wallets {
		if w.Token == token {
			return w, nil
		}
	}
	return nil, errInvalidSession
}

// WalletID resolves a wallet session token.
func (s *Store) WalletID(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.walletLocked(token)
	if err != nil {
		return 0, err
	}
	return w.ID, nil
}

// IsOwner reports whether token belongs to any store owner.
func (s *Store) IsOwner(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	for _, shop := range s.st.Shops {
		if token != "" && shop.OwnerToken == token {
			return true
		}
	}
	return false
}

func (s *Store) shopLocked(id int64) (Shop, error) {
	for _, shop := range s.st.Shops {
		if shop.ID == id {
			return shop, nil
		}
	}
	return Shop{}, errStoreNotFound
}

func (s *Store) authorizeShopLocked(ownerToken string, storeID int64) error {
	shop, err := s.shopLocked(storeID)
	if err != nil {
		return err
	}
	if shop.OwnerToken != strings.TrimSpace(ownerToken) {
		return errForbiddenStore
	}
	return nil
}

func (s *Store) cardLocked(storeID int64) (StampCard, error) {
	for _, c := range s.st.Cards {
		if c.StoreID == storeID {
			return c, nil
		}
	}
	return StampCard{}, errCardNotFound
}

func stampKey(walletID, cardID int64) string {
	return fmt.Sprintf("%d:%d", walletID, cardID)
}

// Stamps returns the stamp count of a wallet on a card.
func (s *Store) Stamps(walletID, cardID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Stamps[stampKey(walletID, cardID)]
}

// addStampsLocked credits n stamps and converts every full card into a reward.
func (s *Store) addStampsLocked(walletID int64, card StampCard, n int, eventType, source string) {
	now := s.now()
	key := stampKey(walletID, card.ID)
	s.st.Stamps[key] += n
	s.st.Events = append(s.st.Events, StampEvent{
		ID:          s.st.nextID(),
		WalletID:    walletID,
		StoreID:     card.StoreID,
		StampCardID: card.ID,
		Type:        eventType,
		Delta:       n,
		Source:      source,
		CreatedAt:   now,
	})
	if card.Goal <= 0 {
		return
	}
	shop, _ := s.shopLocked(card.StoreID)
	for s.st.Stamps[key] >= card.Goal {
		s.st.Stamps[key] -= card.Goal
		s.st.Rewards = append(s.st.Rewards, &api.RewardInstance{
			ID:             s.st.nextID(),
			WalletID:       walletID,
			StoreID:        card.StoreID,
			StoreName:      shop.Name,
			StampCardID:    card.ID,
			StampCardTitle: card.Title,
			RewardName:     card.RewardName,
			Status:         "AVAILABLE",
			ExpiresAt:      api.At(now.Add(rewardLifetime)),
			CreatedAt:      api.At(now),
		})
	}
}
