package api

import (
	"context"
	"fmt"
	"net/http"
)

// SubmitMigration sends a paper-stamp photo reference for review.
func (c *Client) SubmitMigration(ctx context.Context, in CreateMigrationInput) (MigrationRequest, error) {
	var out MigrationRequest
	err := c.do(ctx, http.MethodPost, "/api/migration", nil, authWallet, in, &out)
	return out, err
}

// ListMyMigrations returns the wallet's migration requests, newest first.
func (c *Client) ListMyMigrations(ctx context.Context) ([]MigrationRequest, error) {
	var out []MigrationRequest
	err := c.do(ctx, http.MethodGet, "/api/migration", nil, authWallet, nil, &out)
	return out, err
}

// ListSubmittedMigrations returns the store's migrations awaiting review.
func (c *Client) ListSubmittedMigrations(ctx context.Context, storeID int64) ([]MigrationRequest, error) {
	var out []MigrationRequest
	err := c.do(ctx, http.MethodGet, "/api/owner/migration/submitted", storeQuery(storeID), authOwner, nil, &out)
	return out, err
}

// ApproveMigration credits approvedCount stamps.
func (c *Client) ApproveMigration(ctx context.Context, id int64, approvedCount int) (MigrationRequest, error) {
	var out MigrationRequest
	body := map[string]int{"approvedCount": approvedCount}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/owner/migration/%d/approve", id), nil, authOwner, body, &out)
	return out, err
}

// RejectMigration declines the migration with a reason.
func (c *Client) RejectMigration(ctx context.Context, id int64, reason string) (MigrationRequest, error) {
	var out MigrationRequest
	body := map[string]string{"reason": reason}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/owner/migration/%d/reject", id), nil, authOwner, body, &out)
	return out, err
}
