package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListRewards returns the wallet's available rewards.
func (c *Client) ListRewards(ctx context.Context) ([]RewardInstance, error) {
	var out []RewardInstance
	err := c.do(ctx, http.MethodGet, "/api/redemption/rewards", nil, authWallet, nil, &out)
	return out, err
}

// CreateRedeemSession opens a redemption window for a reward. The wallet
// session must have passed step-up verification.
func (c *Client) CreateRedeemSession(ctx context.Context, in CreateRedeemSessionInput) (RedeemSession, error) {
	var out RedeemSession
	err := c.do(ctx, http.MethodPost, "/api/redemption/sessions", nil, authWallet, in, &out)
	return out, err
}

// CompleteRedemption confirms the redemption. Completing twice is idempotent.
func (c *Client) CompleteRedemption(ctx context.Context, sessionToken string) (RedeemSession, error) {
	var out RedeemSession
	path := "/api/redemption/sessions/" + url.PathEscape(sessionToken) + "/complete"
	err := c.do(ctx, http.MethodPost, path, nil, authNone, nil, &out)
	return out, err
}

// StepUp verifies a one-time code and elevates the wallet session for a short time.
func (c *Client) StepUp(ctx context.Context, otpCode string) (StepUpResult, error) {
	var out StepUpResult
	body := map[string]string{"otpCode": otpCode}
	err := c.do(ctx, http.MethodPost, "/api/wallet/otp/step-up", nil, authWallet, body, &out)
	return out, err
}
