package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/workflow"
)

// MigrationService drives paper-card migration. Submission is not retried:
// it carries no idempotency token and the backend keeps one open request
// per wallet and store.
type MigrationService struct {
	client *api.Client
}

// NewMigration creates the migration service.
func NewMigration(client *api.Client) *MigrationService {
	return &MigrationService{client: client}
}

// Flow returns the migration flow configuration.
func (s *MigrationService) Flow() workflow.Flow { return Migration }

// Submit files a migration request with an uploaded photo reference.
func (s *MigrationService) Submit(ctx context.Context, storeID int64, photoFileName string) (workflow.Request, error) {
	photoFileName = strings.TrimSpace(photoFileName)
	if photoFileName == "" {
		return workflow.Request{}, fmt.Errorf("photo file name is required")
	}
	out, err := s.client.SubmitMigration(ctx, api.CreateMigrationInput{StoreID: storeID, PhotoFileName: photoFileName})
	if err != nil {
		return workflow.Request{}, local(err)
	}
	req := migrationRequest(out)
	slog.Info("migration submitted", "id", req.ID, "store_id", storeID)
	return req, nil
}

// Mine lists the wallet's own migration requests.
func (s *MigrationService) Mine(ctx context.Context) ([]workflow.Request, error) {
	out, err := s.client.ListMyMigrations(ctx)
	if err != nil {
		return nil, local(err)
	}
	return migrationRequests(out), nil
}

// Fetch implements workflow.Fetcher by picking id out of the wallet's own
// requests; there is no single-request endpoint on the customer side.
func (s *MigrationService) Fetch(ctx context.Context, id string) (workflow.Request, error) {
	if _, err := parseID(id); err != nil {
		return workflow.Request{}, err
	}
	mine, err := s.Mine(ctx)
	if err != nil {
		return workflow.Request{}, err
	}
	for _, r := range mine {
		if r.ID == id {
			return r, nil
		}
	}
	return workflow.Request{}, notFound(workflow.KindMigration, id)
}

// ListPending implements workflow.Source.
func (s *MigrationService) ListPending(ctx context.Context, storeID string) ([]workflow.Request, error) {
	sid, err := parseStoreID(storeID)
	if err != nil {
		return nil, err
	}
	out, err := s.client.ListSubmittedMigrations(ctx, sid)
	if err != nil {
		return nil, local(err)
	}
	return migrationRequests(out), nil
}

// Approve implements workflow.Source. The count is mandatory and must not be
// negative.
func (s *MigrationService) Approve(ctx context.Context, id string, approval workflow.Approval) error {
	if approval.Count == nil {
		return workflow.ErrCountRequired
	}
	if err := workflow.ValidateApprovedCount(*approval.Count); err != nil {
		return err
	}
	n, err := parseID(id)
	if err != nil {
		return err
	}
	_, err = s.client.ApproveMigration(ctx, n, *approval.Count)
	return local(err)
}

// Reject implements workflow.Source.
func (s *MigrationService) Reject(ctx context.Context, id, reason string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = Migration.DefaultRejectReason
	}
	_, err = s.client.RejectMigration(ctx, n, reason)
	return local(err)
}

func migrationRequests(in []api.MigrationRequest) []workflow.Request {
	out := make([]workflow.Request, 0, len(in))
	for _, r := range in {
		out = append(out, migrationRequest(r))
	}
	return out
}

func migrationRequest(r api.MigrationRequest) workflow.Request {
	return workflow.Request{
		ID:          formatID(r.ID),
		Kind:        workflow.KindMigration,
		SubjectID:   formatID(r.StampCardID),
		RequesterID: formatID(r.WalletID),
		Status:      workflow.ParseStatus(r.Status),
		CreatedAt:   r.CreatedAt.Time,
		ProcessedAt: r.ProcessedAt.Time,
		Resolution: workflow.Resolution{
			Reason:        r.RejectReason,
			ApprovedCount: r.ApprovedStampCount,
		},
		StoreName: r.StoreName,
		Title:     r.StampCardTitle,
		Detail:    r.PhotoURL,
	}
}
