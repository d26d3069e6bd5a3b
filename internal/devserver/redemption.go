package devserver

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kkookk/kkookk/internal/api"
)

const (
	rewardAvailable = "AVAILABLE"
	rewardUsed      = "USED"
	rewardExpired   = "EXPIRED"
)

// StepUp verifies an OTP code and opens the step-up window on success.
// A wrong code is not an HTTP error.
func (s *Store) StepUp(walletToken, otp string) (api.StepUpResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.walletLocked(walletToken)
	if err != nil {
		return api.StepUpResult{}, err
	}
	if strings.TrimSpace(otp) != DevOTPCode {
		return api.StepUpResult{Success: false, Message: "인증번호가 올바르지 않습니다."}, nil
	}
	w.StepUpUntil = s.now().Add(stepUpWindow)
	return api.StepUpResult{Success: true, Message: "인증되었습니다."}, nil
}

// ListRewards returns the wallet's rewards. Lapsed rewards are marked expired.
func (s *Store) ListRewards(walletToken string) ([]api.RewardInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.walletLocked(walletToken)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]api.RewardInstance, 0)
	for _, r := range s.st.Rewards {
		if r.WalletID != w.ID {
			continue
		}
		if r.Status == rewardAvailable && !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(now) {
			r.Status = rewardExpired
		}
		out = append(out, *r)
	}
	return out, nil
}

// CreateRedeemSession opens a staff confirmation window for a reward. The
// wallet must have passed step-up within the last ten minutes.
func (s *Store) CreateRedeemSession(walletToken string, in api.CreateRedeemSessionInput) (sess api.RedeemSession, replayed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.walletLocked(walletToken)
	if err != nil {
		return api.RedeemSession{}, false, err
	}
	clientID := strings.TrimSpace(in.ClientRequestID)
	if clientID == "" || in.RewardID <= 0 {
		return api.RedeemSession{}, false, errBadRequest
	}
	now := s.now()
	if w.StepUpUntil.IsZero() || !w.StepUpUntil.After(now) {
		return api.RedeemSession{}, false, errStepUpRequired
	}

	for _, rec := range s.st.Sessions {
		if rec.ClientRequestID != clientID {
			continue
		}
		if rec.WalletID != w.ID || rec.RewardID != in.RewardID {
			return api.RedeemSession{}, false, errDuplicateRedeem
		}
		return rec.RedeemSession, true, nil
	}

	reward := s.rewardLocked(in.RewardID)
	if reward == nil {
		return api.RedeemSession{}, false, errRewardNotFound
	}
	if reward.WalletID != w.ID {
		return api.RedeemSession{}, false, errRewardNotOwned
	}
	if reward.Status != rewardAvailable {
		return api.RedeemSession{}, false, errRewardUnusable
	}
	if !reward.ExpiresAt.IsZero() && !reward.ExpiresAt.After(now) {
		reward.Status = rewardExpired
		return api.RedeemSession{}, false, errRewardExpired
	}

	rec := &redeemRecord{
		RedeemSession: api.RedeemSession{
			ID:           s.st.nextID(),
			SessionToken: uuid.NewString(),
			RewardID:     reward.ID,
			RewardName:   reward.RewardName,
			StoreName:    reward.StoreName,
			ExpiresAt:    api.At(now.Add(s.redeemTTL)),
			CreatedAt:    api.At(now),
		},
		WalletID:        w.ID,
		ClientRequestID: clientID,
	}
	s.st.Sessions = append(s.st.Sessions, rec)
	slog.Info("redeem session created", "id", rec.ID, "reward_id", reward.ID, "wallet_id", w.ID)
	return rec.RedeemSession, false, nil
}

// CompleteRedemption marks the reward used. Completing twice returns the
// completed session again.
func (s *Store) CompleteRedemption(sessionToken string) (api.RedeemSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *redeemRecord
	for _, candidate := range s.st.Sessions {
		if candidate.SessionToken == sessionToken {
			rec = candidate
			break
		}
	}
	if rec == nil {
		return api.RedeemSession{}, errSessionNotFound
	}
	if rec.Completed {
		return rec.RedeemSession, nil
	}
	now := s.now()
	if !rec.ExpiresAt.After(now) {
		return api.RedeemSession{}, errSessionExpired
	}
	reward := s.rewardLocked(rec.RewardID)
	if reward == nil || reward.Status != rewardAvailable {
		return api.RedeemSession{}, errRewardUnusable
	}

	reward.Status = rewardUsed
	reward.UsedAt = api.At(now)
	rec.Completed = true
	s.st.Events = append(s.st.Events, StampEvent{
		ID:          s.st.nextID(),
		WalletID:    rec.WalletID,
		StoreID:     reward.StoreID,
		StampCardID: reward.StampCardID,
		Type:        "REDEEMED",
		Source:      rec.ClientRequestID,
		CreatedAt:   now,
	})
	slog.Info("reward redeemed", "session_id", rec.ID, "reward_id", reward.ID)
	return rec.RedeemSession, nil
}

func (s *Store) rewardLocked(id int64) *api.RewardInstance {
	for _, r := range s.st.Rewards {
		if r.ID == id {
			return r
		}
	}
	return nil
}
