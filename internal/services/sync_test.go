package services

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

func (e *testEnv) syncService() SyncService {
	e.t.Helper()
	return e.syncServiceOn(repos.NewSyncItemRepo(e.db, e.log), 0)
}

func (e *testEnv) syncServiceOn(queue repos.SyncItemRepo, delay time.Duration) SyncService {
	e.t.Helper()
	registry, err := NewApplierRegistry(
		ActivityApplier(e.activityService()),
		OrganizationApplier(e.organizationService()),
		ConflictApplier(e.conflictService()),
		JournalApplier(e.journalService()),
		ActionApplier(e.actionService()),
	)
	require.NoError(e.t, err)
	return NewSyncService(e.db, e.log, queue, repos.NewUserRepo(e.db, e.log), registry, e.emitter, nil, delay)
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestApplierRegistryRejectsDuplicates(t *testing.T) {
	e := newEnv(t)
	_, err := NewApplierRegistry(ActivityApplier(e.activityService()), ActivityApplier(e.activityService()))
	require.Error(t, err)
}

func TestSyncEnqueueAndReplay(t *testing.T) {
	e := newEnv(t)
	svc := e.syncService()
	dbc := e.as(e.adp)
	commune := e.terr.Communes[0].ID
	locked := e.program(types.StatusVerrouille)

	activity := map[string]any{
		"activity_type": "sensibilisation",
		"activity_date": "2025-02-10",
		"title":         "Sensibilisation incendies",
		"commune_id":    commune,
	}
	batch := []SyncItemInput{
		{Operation: "insert", TableName: "field_activities", Payload: payload(t, activity), OfflineID: "off-1"},
		{Operation: "INSERT", TableName: "field_activities", Payload: payload(t, activity), OfflineID: "off-1"},
		{Operation: "INSERT", TableName: "pdfcp_actions", Payload: payload(t, map[string]any{
			"pdfcp_id": locked.ID, "etat": "CONCERTE", "year": 2025, "action_key": "piste",
		}), OfflineID: "off-2"},
		{Operation: "INSERT", TableName: "organizations", Payload: payload(t, map[string]any{
			"name": "Coop", "organization_type": "syndicat", "commune_id": commune,
		}), OfflineID: "off-3"},
	}
	res, err := svc.Enqueue(dbc, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Accepted)
	assert.Equal(t, int64(1), res.Ignored)

	again, err := svc.Enqueue(dbc, batch[:1])
	require.NoError(t, err)
	assert.Zero(t, again.Accepted)

	_, err = svc.Enqueue(dbc, []SyncItemInput{{Operation: "UPSERT", TableName: "organizations"}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_operation")
	_, err = svc.Enqueue(dbc, []SyncItemInput{{Operation: "INSERT", TableName: "users"}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_table")
	_, err = svc.Enqueue(dbc, []SyncItemInput{{Operation: "DELETE", TableName: "organizations"}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_request")

	out, err := svc.Replay(dbc)
	require.NoError(t, err)
	assert.Equal(t, ReplayResult{Processed: 3, Synced: 1, Failed: 1, Conflicts: 1}, *out)

	acts, err := e.activityService().List(dbc, FieldQuery{})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "Sensibilisation incendies", acts[0].Title)

	view, err := svc.List(dbc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Counts[types.SyncSynced])
	assert.Equal(t, int64(1), view.Counts[types.SyncConflict])
	assert.Equal(t, int64(1), view.Counts[types.SyncPending])

	// the bad organization keeps failing until it is parked
	for i := 0; i < 2; i++ {
		_, err = svc.Replay(dbc)
		require.NoError(t, err)
	}
	view, err = svc.List(dbc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Counts[types.SyncError])
	for _, it := range view.Items {
		if it.SyncStatus == types.SyncError {
			assert.Equal(t, 3, it.RetryCount)
			assert.NotEmpty(t, it.LastError)
		}
	}

	assert.Len(t, e.emitter.events(realtime.SSEEventSyncItemProcessed), 5)

	n, err := svc.ClearSynced(dbc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSyncReplayNextActsAsOwner(t *testing.T) {
	e := newEnv(t)
	svc := e.syncService()
	commune := e.terr.Communes[0].ID

	// otherAdp cannot write outside its commune, even offline
	_, err := svc.Enqueue(e.as(e.otherAdp), []SyncItemInput{{
		Operation: "INSERT",
		TableName: "organizations",
		Payload:   payload(t, map[string]any{"name": "ODF", "organization_type": "ODF", "commune_id": commune, "adp_user_id": uuid.New()}),
	}})
	require.NoError(t, err)

	processed, err := svc.ReplayNext(e.ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	view, err := svc.List(e.as(e.otherAdp))
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, types.SyncPending, view.Items[0].SyncStatus)
	assert.Equal(t, 1, view.Items[0].RetryCount)

	processed, err = svc.ReplayNext(e.ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	for i := 0; i < 2; i++ {
		_, err = svc.ReplayNext(e.ctx)
		require.NoError(t, err)
	}
	processed, err = svc.ReplayNext(e.ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

// racingQueue lets another replayer claim the oldest item right after the
// queue was listed.
type racingQueue struct {
	repos.SyncItemRepo
}

func (q racingQueue) ListPending(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SyncItem, error) {
	items, err := q.SyncItemRepo.ListPending(dbc, userID, limit)
	if err != nil {
		return nil, err
	}
	if _, err := q.SyncItemRepo.ClaimNext(dbctx.Context{Ctx: dbc.Ctx}); err != nil {
		return nil, err
	}
	return items, nil
}

func TestSyncReplaySkipsItemsClaimedElsewhere(t *testing.T) {
	e := newEnv(t)
	svc := e.syncServiceOn(racingQueue{repos.NewSyncItemRepo(e.db, e.log)}, 20*time.Millisecond)
	dbc := e.as(e.adp)
	commune := e.terr.Communes[0].ID

	var batch []SyncItemInput
	for _, off := range []string{"off-a", "off-b", "off-c"} {
		batch = append(batch, SyncItemInput{
			Operation: "INSERT",
			TableName: "organizations",
			Payload:   payload(t, map[string]any{"name": "Coop " + off, "organization_type": "cooperative", "commune_id": commune}),
			OfflineID: off,
		})
	}
	_, err := svc.Enqueue(dbc, batch)
	require.NoError(t, err)

	start := time.Now()
	out, err := svc.Replay(dbc)
	require.NoError(t, err)
	assert.Equal(t, ReplayResult{Processed: 2, Synced: 2}, *out)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	orgs, err := e.organizationService().List(dbc, FieldQuery{})
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	view, err := svc.List(dbc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Counts[types.SyncProcessing])
}
