package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/metrics"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock  *clockwork.FakeClock
	store  *Store
	srv    *httptest.Server
	wallet *api.Client
	owner  *api.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	store := NewStore(WithStoreClock(clock))
	srv := httptest.NewServer(NewHandler(store))
	t.Cleanup(srv.Close)
	return &fixture{
		clock:  clock,
		store:  store,
		srv:    srv,
		wallet: api.New(srv.URL, api.Session{WalletToken: DevWalletToken}),
		owner:  api.New(srv.URL, api.Session{OwnerToken: DevOwnerToken}),
	}
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr), "expected *api.Error, got %v", err)
	assert.Equal(t, status, apiErr.StatusCode)
	assert.Equal(t, code, apiErr.Code)
	assert.NotEmpty(t, apiErr.Message)
}

func TestIssuanceApproveLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, epoch.Add(DefaultIssuanceTTL), created.ExpiresAt.UTC())

	pending, err := f.owner.ListPendingIssuance(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	approved, err := f.owner.ApproveIssuance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, 1, f.store.Stamps(1, 1))

	got, err := api.New(f.srv.URL, api.Session{}).GetIssuance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", got.Status)

	_, err = f.owner.ApproveIssuance(ctx, created.ID)
	requireAPIError(t, err, http.StatusConflict, "IR003")

	pending, err = f.owner.ListPendingIssuance(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestIssuanceReplaySameClientRequestID(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"storeId":1,"clientRequestId":"same"}`)

	post := func() (int, api.IssuanceRequest) {
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/issuance", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set(headerWalletSession, DevWalletToken)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out api.IssuanceRequest
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	status1, first := post()
	status2, second := post()
	assert.Equal(t, http.StatusCreated, status1)
	assert.Equal(t, http.StatusOK, status2)
	assert.Equal(t, first.ID, second.ID)

	other := api.New(f.srv.URL, api.Session{WalletToken: "dev-wallet-session-2"})
	_, err := other.CreateIssuance(context.Background(), api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "same"})
	requireAPIError(t, err, http.StatusConflict, "IR001")
}

func TestIssuanceApproveAfterExpiryIsGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "late"})
	require.NoError(t, err)

	f.clock.Advance(DefaultIssuanceTTL + time.Second)

	pending, err := f.owner.ListPendingIssuance(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.owner.ApproveIssuance(ctx, created.ID)
	requireAPIError(t, err, http.StatusGone, "IR004")

	got, err := f.wallet.GetIssuance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", got.Status)
	assert.Equal(t, 0, f.store.Stamps(1, 1))
}

func TestIssuanceRejectUsesDefaultReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "r"})
	require.NoError(t, err)

	rejected, err := f.owner.RejectIssuance(ctx, created.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rejected.Status)
	assert.Equal(t, "거부됨", rejected.RejectionReason)
}

func TestOwnerAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "own"})
	require.NoError(t, err)

	stranger := api.New(f.srv.URL, api.Session{OwnerToken: "dev-owner-token-2"})
	_, err = stranger.ApproveIssuance(ctx, created.ID)
	requireAPIError(t, err, http.StatusForbidden, "O002")

	_, err = stranger.ListPendingIssuance(ctx, 1)
	requireAPIError(t, err, http.StatusForbidden, "O002")

	bogus := api.New(f.srv.URL, api.Session{OwnerToken: "nope"})
	_, err = bogus.ListPendingIssuance(ctx, 1)
	requireAPIError(t, err, http.StatusUnauthorized, "O001")

	anon := api.New(f.srv.URL, api.Session{WalletToken: "nope"})
	_, err = anon.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "x"})
	requireAPIError(t, err, http.StatusUnauthorized, "S001")

	_, err = f.owner.ApproveIssuance(ctx, 9999)
	requireAPIError(t, err, http.StatusNotFound, "IR002")
}

func TestApprovalsAtGoalEarnReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		created, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "goal-" + string(rune('a'+i))})
		require.NoError(t, err)
		_, err = f.owner.ApproveIssuance(ctx, created.ID)
		require.NoError(t, err)
	}

	assert.Equal(t, 0, f.store.Stamps(1, 1))
	rewards, err := f.wallet.ListRewards(ctx)
	require.NoError(t, err)
	assert.Len(t, rewards, 2)
}

func TestRedemptionRequiresStepUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rewards, err := f.wallet.ListRewards(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	reward := rewards[0]
	assert.Equal(t, "AVAILABLE", reward.Status)

	_, err = f.wallet.CreateRedeemSession(ctx, api.CreateRedeemSessionInput{RewardID: reward.ID, ClientRequestID: "rd-1"})
	requireAPIError(t, err, http.StatusForbidden, "RD001")

	res, err := f.wallet.StepUp(ctx, "000000")
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = f.wallet.StepUp(ctx, DevOTPCode)
	require.NoError(t, err)
	assert.True(t, res.Success)

	sess, err := f.wallet.CreateRedeemSession(ctx, api.CreateRedeemSessionInput{RewardID: reward.ID, ClientRequestID: "rd-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.SessionToken)
	assert.Equal(t, epoch.Add(DefaultRedeemTTL), sess.ExpiresAt.UTC())

	again, err := f.wallet.CreateRedeemSession(ctx, api.CreateRedeemSessionInput{RewardID: reward.ID, ClientRequestID: "rd-1"})
	require.NoError(t, err)
	assert.Equal(t, sess.SessionToken, again.SessionToken)

	done, err := f.wallet.CompleteRedemption(ctx, sess.SessionToken)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	done, err = f.wallet.CompleteRedemption(ctx, sess.SessionToken)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	rewards, err = f.wallet.ListRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USED", rewards[0].Status)

	_, err = f.wallet.CreateRedeemSession(ctx, api.CreateRedeemSessionInput{RewardID: reward.ID, ClientRequestID: "rd-2"})
	requireAPIError(t, err, http.StatusConflict, "RD004")
}

func TestRedeemSessionExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rewards, err := f.wallet.ListRewards(ctx)
	require.NoError(t, err)
	_, err = f.wallet.StepUp(ctx, DevOTPCode)
	require.NoError(t, err)
	sess, err := f.wallet.CreateRedeemSession(ctx, api.CreateRedeemSessionInput{RewardID: rewards[0].ID, ClientRequestID: "slow"})
	require.NoError(t, err)

	f.clock.Advance(DefaultRedeemTTL + time.Second)

	_, err = f.wallet.CompleteRedemption(ctx, sess.SessionToken)
	requireAPIError(t, err, http.StatusGone, "RD008")

	_, err = f.wallet.CompleteRedemption(ctx, "unknown")
	requireAPIError(t, err, http.StatusNotFound, "RD007")
}

func TestStepUpWindowLapses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rewards, err := f.wallet.ListRewards(ctx)
	require.NoError(t, err)
	_, err = f.wallet.StepUp(ctx, DevOTPCode)
	require.NoError(t, err)

	f.clock.Advance(stepUpWindow + time.Second)

	_, err = f.wallet.CreateRedeemSession(ctx, api.CreateRedeemSessionInput{RewardID: rewards[0].ID, ClientRequestID: "lapsed"})
	requireAPIError(t, err, http.StatusForbidden, "RD001")
}

func TestMigrationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	submitted, err := f.wallet.SubmitMigration(ctx, api.CreateMigrationInput{StoreID: 1, PhotoFileName: "card.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "SUBMITTED", submitted.Status)
	assert.Equal(t, "/uploads/card.jpg", submitted.PhotoURL)
	assert.Nil(t, submitted.ApprovedStampCount)

	_, err = f.wallet.SubmitMigration(ctx, api.CreateMigrationInput{StoreID: 1, PhotoFileName: "again.jpg"})
	requireAPIError(t, err, http.StatusConflict, "M001")

	queue, err := f.owner.ListSubmittedMigrations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	_, err = f.owner.ApproveMigration(ctx, submitted.ID, 11)
	requireAPIError(t, err, http.StatusBadRequest, "M004")

	approved, err := f.owner.ApproveMigration(ctx, submitted.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	require.NotNil(t, approved.ApprovedStampCount)
	assert.Equal(t, 3, *approved.ApprovedStampCount)
	assert.Equal(t, 3, f.store.Stamps(1, 1))

	_, err = f.owner.RejectMigration(ctx, submitted.ID, "late")
	requireAPIError(t, err, http.StatusConflict, "M003")

	mine, err := f.wallet.ListMyMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "APPROVED", mine[0].Status)
}

func TestMigrationApproveZeroAndRejectDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.wallet.SubmitMigration(ctx, api.CreateMigrationInput{StoreID: 1, PhotoFileName: "a.jpg"})
	require.NoError(t, err)
	approved, err := f.owner.ApproveMigration(ctx, first.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedStampCount)
	assert.Equal(t, 0, *approved.ApprovedStampCount)

	second, err := f.wallet.SubmitMigration(ctx, api.CreateMigrationInput{StoreID: 2, PhotoFileName: "b.jpg"})
	require.NoError(t, err)
	owner2 := api.New(f.srv.URL, api.Session{OwnerToken: "dev-owner-token-2"})
	rejected, err := owner2.RejectMigration(ctx, second.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "반려됨", rejected.RejectReason)
}

// storedStatus reads the status without the lazy expiry of GetIssuance.
func storedStatus(s *Store, id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req := s.issuanceLocked(id); req != nil {
		return req.Status
	}
	return ""
}

func TestSweeperExpiresPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "sweep"})
	require.NoError(t, err)

	sweeper := NewSweeper(f.store, time.Second)
	sweeper.Start()
	t.Cleanup(sweeper.Stop)
	assert.True(t, sweeper.IsRunning())

	f.clock.Advance(DefaultIssuanceTTL + time.Second)

	require.Eventually(t, func() bool {
		return storedStatus(f.store, created.ID) == "EXPIRED"
	}, time.Second, 10*time.Millisecond)

	sweeper.Stop()
	assert.False(t, sweeper.IsRunning())
}

func TestAdminTimeAdvanceAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "adm"})
	require.NoError(t, err)

	resp, err := http.Post(f.srv.URL+"/admin/time/advance", "application/json", bytes.NewBufferString(`{"duration":"2m"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, epoch.Add(2*time.Minute), f.clock.Now())

	resp, err = http.Post(f.srv.URL+"/admin/expire", "application/json", nil)
	require.NoError(t, err)
	var expired struct {
		Expired int `json:"expired"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&expired))
	resp.Body.Close()
	assert.Equal(t, 1, expired.Expired)

	resp, err = http.Post(f.srv.URL+"/admin/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(f.srv.URL + "/admin/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st struct {
		Issuances []api.IssuanceRequest `json:"issuances"`
		Rewards   []api.RewardInstance  `json:"rewards"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Empty(t, st.Issuances)
	assert.Len(t, st.Rewards, 1)
}

func TestAdminMetricsCountsOutcomesPerRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.wallet.CreateIssuance(ctx, api.CreateIssuanceInput{StoreID: 1, ClientRequestID: "met"})
	require.NoError(t, err)
	_, err = f.owner.ApproveIssuance(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.owner.ApproveIssuance(ctx, created.ID)
	require.Error(t, err)

	resp, err := http.Get(f.srv.URL + "/admin/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap metrics.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))

	approve := snap.Routes["POST /api/owner/issuance/{id}/approve"]
	assert.EqualValues(t, 2, approve.Total)
	assert.EqualValues(t, 1, approve.Conflicts)
	assert.EqualValues(t, 1, approve.ClientErrors)
	assert.EqualValues(t, 1, snap.Routes["POST /api/issuance"].Total)
	assert.GreaterOrEqual(t, snap.All.Total, int64(3))
}

func TestTimeAdvanceNeedsFakeClock(t *testing.T) {
	srv := httptest.NewServer(NewHandler(NewStore()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/time/advance", "application/json", bytes.NewBufferString(`{"duration":"1m"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewHandler(NewStore()))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "rid-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "rid-1", body["request_id"])
}
