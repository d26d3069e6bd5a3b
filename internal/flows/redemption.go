package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/workflow"
)

var (
	// ErrStepUpRequired means the wallet must pass OTP step-up before redeeming.
	ErrStepUpRequired = errors.New("step-up verification required")
	// ErrStepUpFailed means the backend refused the OTP code.
	ErrStepUpFailed = errors.New("step-up verification failed")
)

// RedemptionService drives reward redemption. The session is never polled:
// the outcome of Complete is the observed terminal state.
type RedemptionService struct {
	client *api.Client
	opts   options
}

// NewRedemption creates the redemption service.
func NewRedemption(client *api.Client, opts ...Option) *RedemptionService {
	return &RedemptionService{client: client, opts: buildOptions(opts)}
}

// Flow returns the redemption flow configuration.
func (s *RedemptionService) Flow() workflow.Flow { return Redemption }

// Rewards lists the wallet's rewards.
func (s *RedemptionService) Rewards(ctx context.Context) ([]api.RewardInstance, error) {
	out, err := s.client.ListRewards(ctx)
	return out, local(err)
}

// StepUp submits an OTP code.
func (s *RedemptionService) StepUp(ctx context.Context, otpCode string) error {
	otpCode = strings.TrimSpace(otpCode)
	if otpCode == "" {
		return fmt.Errorf("%w: otp code is required", ErrStepUpFailed)
	}
	res, err := s.client.StepUp(ctx, otpCode)
	if err != nil {
		return local(err)
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", ErrStepUpFailed, res.Message)
	}
	return nil
}

// Start opens a redeem session for rewardID, retrying transient failures
// with the same idempotency token.
func (s *RedemptionService) Start(ctx context.Context, rewardID int64) (workflow.Request, error) {
	token := workflow.NewClientRequestID()
	in := api.CreateRedeemSessionInput{RewardID: rewardID, ClientRequestID: token}

	out, err := createWithRetry(ctx, s.opts, workflow.KindRedemption, token, func(ctx context.Context) (api.RedeemSession, error) {
		return s.client.CreateRedeemSession(ctx, in)
	})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			return workflow.Request{}, fmt.Errorf("%w: %w", ErrStepUpRequired, err)
		}
		return workflow.Request{}, err
	}
	req := redeemRequest(out)
	slog.Info("redeem session opened", "reward_id", rewardID, "expires_at", req.ExpiresAt)
	return req, nil
}

// Complete confirms the session. A 409 or 410 is not an error here: it is
// the terminal state the session reached, returned as the request.
func (s *RedemptionService) Complete(ctx context.Context, pending workflow.Request) (workflow.Request, error) {
	out, err := s.client.CompleteRedemption(ctx, pending.ID)
	if err == nil {
		req := redeemRequest(out)
		slog.Info("redemption completed", "reward", req.Title)
		return req, nil
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return pending, local(err)
	}
	resolved := pending
	switch apiErr.StatusCode {
	case http.StatusGone:
		resolved.Status = workflow.StatusExpired
		return resolved, nil
	case http.StatusConflict:
		resolved.Status = workflow.StatusRejected
		resolved.Resolution.Reason = apiErr.UserMessage()
		return resolved, nil
	}
	return pending, err
}

func redeemRequest(r api.RedeemSession) workflow.Request {
	status := workflow.StatusPending
	if r.Completed {
		status = workflow.StatusApproved
	}
	return workflow.Request{
		ID:        r.SessionToken,
		Kind:      workflow.KindRedemption,
		SubjectID: formatID(r.RewardID),
		Status:    status,
		CreatedAt: r.CreatedAt.Time,
		ExpiresAt: r.ExpiresAt.Time,
		StoreName: r.StoreName,
		Title:     r.RewardName,
	}
}
