package flows

import (
	"context"
	"log/slog"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/workflow"
)

// IssuanceService drives stamp issuance from both sides of the counter.
// It is a workflow.Fetcher for the customer and a workflow.Source for staff.
type IssuanceService struct {
	client *api.Client
	opts   options
}

// NewIssuance creates the issuance service.
func NewIssuance(client *api.Client, opts ...Option) *IssuanceService {
	return &IssuanceService{client: client, opts: buildOptions(opts)}
}

// Flow returns the issuance flow configuration.
func (s *IssuanceService) Flow() workflow.Flow { return Issuance }

// Create asks storeID for a stamp. One idempotency token is generated per
// call and reused across transient retries.
func (s *IssuanceService) Create(ctx context.Context, storeID int64) (workflow.Request, error) {
	token := workflow.NewClientRequestID()
	in := api.CreateIssuanceInput{StoreID: storeID, ClientRequestID: token}

	out, err := createWithRetry(ctx, s.opts, workflow.KindIssuance, token, func(ctx context.Context) (api.IssuanceRequest, error) {
		return s.client.CreateIssuance(ctx, in)
	})
	if err != nil {
		return workflow.Request{}, err
	}
	req := issuanceRequest(out)
	slog.Info("issuance requested", "id", req.ID, "store_id", storeID, "client_request_id", token)
	return req, nil
}

// Fetch implements workflow.Fetcher.
func (s *IssuanceService) Fetch(ctx context.Context, id string) (workflow.Request, error) {
	n, err := parseID(id)
	if err != nil {
		return workflow.Request{}, err
	}
	out, err := s.client.GetIssuance(ctx, n)
	if err != nil {
		return workflow.Request{}, local(err)
	}
	return issuanceRequest(out), nil
}

// ListPending implements workflow.Source.
func (s *IssuanceService) ListPending(ctx context.Context, storeID string) ([]workflow.Request, error) {
	sid, err := parseStoreID(storeID)
	if err != nil {
		return nil, err
	}
	out, err := s.client.ListPendingIssuance(ctx, sid)
	if err != nil {
		return nil, local(err)
	}
	reqs := make([]workflow.Request, 0, len(out))
	for _, r := range out {
		reqs = append(reqs, issuanceRequest(r))
	}
	return reqs, nil
}

// Approve implements workflow.Source. Issuance approval carries no payload.
func (s *IssuanceService) Approve(ctx context.Context, id string, _ workflow.Approval) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	_, err = s.client.ApproveIssuance(ctx, n)
	return local(err)
}

// Reject implements workflow.Source.
func (s *IssuanceService) Reject(ctx context.Context, id, reason string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = Issuance.DefaultRejectReason
	}
	_, err = s.client.RejectIssuance(ctx, n, reason)
	return local(err)
}

func issuanceRequest(r api.IssuanceRequest) workflow.Request {
	return workflow.Request{
		ID:              formatID(r.ID),
		Kind:            workflow.KindIssuance,
		SubjectID:       formatID(r.StampCardID),
		RequesterID:     formatID(r.WalletID),
		Status:          workflow.ParseStatus(r.Status),
		CreatedAt:       r.CreatedAt.Time,
		ExpiresAt:       r.ExpiresAt.Time,
		ProcessedAt:     r.ProcessedAt.Time,
		Resolution:      workflow.Resolution{Reason: r.RejectionReason},
		ClientRequestID: r.ClientRequestID,
		StoreName:       r.StoreName,
		Title:           r.StampCardTitle,
	}
}
