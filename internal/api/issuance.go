package api

import (
	"context"
	"fmt"
	"net/http"
)

// CreateIssuance asks the store for one stamp.
func (c *Client) CreateIssuance(ctx context.Context, in CreateIssuanceInput) (IssuanceRequest, error) {
	var out IssuanceRequest
	err := c.do(ctx, http.MethodPost, "/api/issuance", nil, authWallet, in, &out)
	return out, err
}

// GetIssuance fetches one issuance request.
func (c *Client) GetIssuance(ctx context.Context, id int64) (IssuanceRequest, error) {
	var out IssuanceRequest
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/issuance/%d", id), nil, authNone, nil, &out)
	return out, err
}

// ListPendingIssuance returns the store's pending, unexpired requests.
func (c *Client) ListPendingIssuance(ctx context.Context, storeID int64) ([]IssuanceRequest, error) {
	var out []IssuanceRequest
	err := c.do(ctx, http.MethodGet, "/api/owner/issuance/pending", storeQuery(storeID), authOwner, nil, &out)
	return out, err
}

// ApproveIssuance grants the stamp.
func (c *Client) ApproveIssuance(ctx context.Context, id int64) (IssuanceRequest, error) {
	var out IssuanceRequest
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/owner/issuance/%d/approve", id), nil, authOwner, nil, &out)
	return out, err
}

// RejectIssuance declines the request with a reason.
func (c *Client) RejectIssuance(ctx context.Context, id int64, reason string) (IssuanceRequest, error) {
	var out IssuanceRequest
	body := map[string]string{"reason": reason}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/owner/issuance/%d/reject", id), nil, authOwner, body, &out)
	return out, err
}
