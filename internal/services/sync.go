package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/syncq"
	"github.com/anef-maroc/pdfcp-backend/internal/observability"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

const maxEnqueueBatch = 500

// Applier replays queued writes for one table through the owning service.
type Applier interface {
	Table() string
	Apply(dbc dbctx.Context, item *types.SyncItem) error
}

type ApplierRegistry struct {
	mu       sync.RWMutex
	appliers map[string]Applier
}

func NewApplierRegistry(appliers ...Applier) (*ApplierRegistry, error) {
	r := &ApplierRegistry{appliers: make(map[string]Applier)}
	for _, a := range appliers {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *ApplierRegistry) Register(a Applier) error {
	if a == nil {
		return fmt.Errorf("nil applier")
	}
	t := a.Table()
	if t == "" {
		return fmt.Errorf("applier Table() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.appliers[t]; exists {
		return fmt.Errorf("applier already registered for table=%s", t)
	}
	r.appliers[t] = a
	return nil
}

func (r *ApplierRegistry) Get(table string) (Applier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appliers[table]
	return a, ok
}

type SyncItemInput struct {
	Operation string          `json:"operation"`
	TableName string          `json:"table_name"`
	RecordID  *uuid.UUID      `json:"record_id"`
	Payload   json.RawMessage `json:"payload"`
	OfflineID string          `json:"offline_id"`
}

type EnqueueResult struct {
	Accepted int64 `json:"accepted"`
	Ignored  int64 `json:"ignored"`
}

type SyncQueueView struct {
	Items  []*types.SyncItem `json:"items"`
	Counts map[string]int64  `json:"counts"`
}

type ReplayResult struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Conflicts int `json:"conflicts"`
}

func (r *ReplayResult) add(status string) {
	r.Processed++
	switch status {
	case types.SyncSynced:
		r.Synced++
	case types.SyncConflict:
		r.Conflicts++
	default:
		r.Failed++
	}
}

// SyncService owns the offline write queue. Replays act as the item's owner,
// so scope and lock rules apply exactly as they do online.
type SyncService interface {
	Enqueue(dbc dbctx.Context, items []SyncItemInput) (*EnqueueResult, error)
	List(dbc dbctx.Context) (*SyncQueueView, error)
	Replay(dbc dbctx.Context) (*ReplayResult, error)
	ClearSynced(dbc dbctx.Context) (int64, error)
	// ReplayNext replays the oldest pending item of any user. It reports
	// false when the queue is empty.
	ReplayNext(ctx context.Context) (bool, error)
}

type syncService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.SyncItemRepo
	users    repos.UserRepo
	registry *ApplierRegistry
	emitter  SSEEmitter
	metrics  *observability.Metrics
	delay    time.Duration
}

// NewSyncService builds the queue service. delay is the pause between two
// items of an on-demand replay.
func NewSyncService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.SyncItemRepo,
	users repos.UserRepo,
	registry *ApplierRegistry,
	emitter SSEEmitter,
	metrics *observability.Metrics,
	delay time.Duration,
) SyncService {
	return &syncService{
		db:       db,
		log:      baseLog.With("service", "SyncService"),
		repo:     repo,
		users:    users,
		registry: registry,
		emitter:  emitter,
		metrics:  metrics,
		delay:    delay,
	}
}

var syncOperations = []string{syncq.OpInsert, syncq.OpUpdate, syncq.OpDelete}

func (s *syncService) Enqueue(dbc dbctx.Context, in []SyncItemInput) (*EnqueueResult, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return &EnqueueResult{}, nil
	}
	if len(in) > maxEnqueueBatch {
		return nil, invalid("invalid_request", "at most %d items per batch", maxEnqueueBatch)
	}
	items := make([]*types.SyncItem, 0, len(in))
	seen := map[string]bool{}
	for i, it := range in {
		op := strings.ToUpper(strings.TrimSpace(it.Operation))
		if !oneOf(op, syncOperations) {
			return nil, invalid("invalid_operation", "item %d: operation must be one of %s", i, strings.Join(syncOperations, ", "))
		}
		table := strings.TrimSpace(it.TableName)
		if _, ok := s.registry.Get(table); !ok {
			return nil, invalid("invalid_table", "item %d: table %q cannot be synced", i, table)
		}
		if (op == syncq.OpUpdate || op == syncq.OpDelete) && it.RecordID == nil {
			return nil, invalid("invalid_request", "item %d: record_id is required for %s", i, op)
		}
		offlineID := strings.TrimSpace(it.OfflineID)
		if offlineID != "" {
			if seen[offlineID] {
				continue
			}
			seen[offlineID] = true
		}
		items = append(items, &types.SyncItem{
			UserID:    rd.UserID,
			Operation: op,
			Table:     table,
			RecordID:  it.RecordID,
			Payload:   jsonOrNil(it.Payload),
			OfflineID: offlineID,
		})
	}
	n, err := s.repo.Enqueue(dbc, items)
	if err != nil {
		return nil, fmt.Errorf("enqueue sync items: %w", err)
	}
	s.log.Info("sync items queued", "user_id", rd.UserID, "accepted", n, "received", len(in))
	return &EnqueueResult{Accepted: n, Ignored: int64(len(in)) - n}, nil
}

func (s *syncService) List(dbc dbctx.Context) (*SyncQueueView, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByUser(dbc, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("list sync items: %w", err)
	}
	counts, err := s.repo.CountByStatus(dbc, &rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("count sync items: %w", err)
	}
	return &SyncQueueView{Items: nonNil(items), Counts: counts}, nil
}

func (s *syncService) Replay(dbc dbctx.Context) (*ReplayResult, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListPending(dbc, rd.UserID, 0)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	res := &ReplayResult{}
	for i, it := range items {
		if i > 0 && s.delay > 0 {
			select {
			case <-dbc.Ctx.Done():
				return res, dbc.Ctx.Err()
			case <-time.After(s.delay):
			}
		}
		if err := dbc.Ctx.Err(); err != nil {
			return res, err
		}
		// the worker or another instance may hold the item
		ok, err := s.repo.Claim(dbc, it.ID)
		if err != nil {
			return res, fmt.Errorf("claim sync item: %w", err)
		}
		if !ok {
			continue
		}
		status, err := s.replay(dbc.Ctx, it)
		if err != nil {
			return res, err
		}
		res.add(status)
	}
	return res, nil
}

func (s *syncService) ClearSynced(dbc dbctx.Context) (int64, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteSynced(dbc, rd.UserID)
	if err != nil {
		return 0, fmt.Errorf("clear synced items: %w", err)
	}
	return n, nil
}

func (s *syncService) ReplayNext(ctx context.Context) (bool, error) {
	it, err := s.repo.ClaimNext(dbctx.Context{Ctx: ctx})
	if err != nil {
		return false, fmt.Errorf("claim sync item: %w", err)
	}
	if it == nil {
		return false, nil
	}
	_, err = s.replay(ctx, it)
	return true, err
}

// replay applies one item as its owner and records the outcome. The returned
// error is about bookkeeping only; apply failures land on the item.
func (s *syncService) replay(ctx context.Context, it *types.SyncItem) (string, error) {
	applyErr := s.apply(ctx, it)
	status, updates := outcome(it, applyErr)
	if err := s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, it.ID, updates); err != nil {
		return "", fmt.Errorf("record sync outcome: %w", err)
	}
	s.metrics.IncSyncReplay(it.Table, status)
	if applyErr != nil {
		s.log.Warn("sync replay failed", "item_id", it.ID, "table", it.Table, "op", it.Operation, "status", status, "error", applyErr)
	} else {
		s.log.Debug("sync item replayed", "item_id", it.ID, "table", it.Table, "op", it.Operation)
	}
	if s.emitter != nil {
		s.emitter.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(it.UserID),
			Event:   realtime.SSEEventSyncItemProcessed,
			Data: map[string]any{
				"id":          it.ID,
				"offline_id":  it.OfflineID,
				"table_name":  it.Table,
				"sync_status": status,
			},
		})
	}
	return status, nil
}

func (s *syncService) apply(ctx context.Context, it *types.SyncItem) error {
	a, ok := s.registry.Get(it.Table)
	if !ok {
		return fmt.Errorf("no applier for table %s", it.Table)
	}
	u, err := s.users.GetByID(dbctx.Context{Ctx: ctx}, it.UserID)
	if err != nil {
		return fmt.Errorf("load sync owner: %w", err)
	}
	if u == nil || !u.IsActive {
		return fmt.Errorf("sync owner %s is unknown or inactive", it.UserID)
	}
	rd := &ctxutil.RequestData{UserID: u.ID, FullName: u.FullName, Role: u.Role, Scope: u.Scope()}
	return a.Apply(dbctx.Context{Ctx: ctxutil.WithRequestData(ctx, rd)}, it)
}

// outcome maps an apply result onto the item's next state.
func outcome(it *types.SyncItem, err error) (string, map[string]any) {
	now := time.Now().UTC()
	if err == nil {
		return types.SyncSynced, map[string]any{"sync_status": types.SyncSynced, "last_error": "", "last_attempt_at": now}
	}
	updates := map[string]any{"last_error": err.Error(), "last_attempt_at": now}
	if st := apierr.StatusOf(err); st == http.StatusConflict || st == http.StatusLocked {
		updates["sync_status"] = types.SyncConflict
		return types.SyncConflict, updates
	}
	retries := it.RetryCount + 1
	updates["retry_count"] = retries
	status := types.SyncPending
	if retries >= syncq.MaxRetries {
		status = types.SyncError
	}
	updates["sync_status"] = status
	return status, updates
}

// decodePayload reads an item payload; an empty payload decodes to the zero value.
func decodePayload[T any](it *types.SyncItem) (T, error) {
	var out T
	if len(it.Payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(it.Payload, &out); err != nil {
		return out, apierr.BadRequest("invalid_request", fmt.Errorf("decode %s payload: %w", it.Table, err))
	}
	return out, nil
}

var errMissingRecordID = errors.New("record_id is required")

// crudApplier adapts a field-record service to the replay registry.
type crudApplier[In, Patch any] struct {
	table string

	create func(dbc dbctx.Context, in In) error
	patch  func(dbc dbctx.Context, id uuid.UUID, p Patch) error
	remove func(dbc dbctx.Context, id uuid.UUID) error
}

func (a crudApplier[In, Patch]) Table() string { return a.table }

func (a crudApplier[In, Patch]) Apply(dbc dbctx.Context, it *types.SyncItem) error {
	switch it.Operation {
	case syncq.OpInsert:
		in, err := decodePayload[In](it)
		if err != nil {
			return err
		}
		return a.create(dbc, in)
	case syncq.OpUpdate:
		if it.RecordID == nil {
			return apierr.BadRequest("invalid_request", errMissingRecordID)
		}
		p, err := decodePayload[Patch](it)
		if err != nil {
			return err
		}
		return a.patch(dbc, *it.RecordID, p)
	case syncq.OpDelete:
		if it.RecordID == nil {
			return apierr.BadRequest("invalid_request", errMissingRecordID)
		}
		return a.remove(dbc, *it.RecordID)
	}
	return apierr.BadRequest("invalid_operation", fmt.Errorf("unknown operation %q", it.Operation))
}

func ActivityApplier(svc ActivityService) Applier {
	return crudApplier[ActivityInput, ActivityPatch]{
		table: types.Activity{}.TableName(),
		create: func(dbc dbctx.Context, in ActivityInput) error {
			_, err := svc.Create(dbc, in)
			return err
		},
		patch: func(dbc dbctx.Context, id uuid.UUID, p ActivityPatch) error {
			_, err := svc.Patch(dbc, id, p)
			return err
		},
		remove: svc.Delete,
	}
}

func OrganizationApplier(svc OrganizationService) Applier {
	return crudApplier[OrganizationInput, OrganizationPatch]{
		table: types.Organization{}.TableName(),
		create: func(dbc dbctx.Context, in OrganizationInput) error {
			_, err := svc.Create(dbc, in)
			return err
		},
		patch: func(dbc dbctx.Context, id uuid.UUID, p OrganizationPatch) error {
			_, err := svc.Patch(dbc, id, p)
			return err
		},
		remove: svc.Delete,
	}
}

func ConflictApplier(svc ConflictService) Applier {
	return crudApplier[ConflictInput, ConflictPatch]{
		table: types.Conflict{}.TableName(),
		create: func(dbc dbctx.Context, in ConflictInput) error {
			_, err := svc.Create(dbc, in)
			return err
		},
		patch: func(dbc dbctx.Context, id uuid.UUID, p ConflictPatch) error {
			_, err := svc.Patch(dbc, id, p)
			return err
		},
		remove: svc.Delete,
	}
}

func JournalApplier(svc JournalService) Applier {
	return crudApplier[JournalEntryInput, JournalEntryPatch]{
		table: types.JournalEntry{}.TableName(),
		create: func(dbc dbctx.Context, in JournalEntryInput) error {
			_, err := svc.Create(dbc, in)
			return err
		},
		patch: func(dbc dbctx.Context, id uuid.UUID, p JournalEntryPatch) error {
			_, err := svc.Patch(dbc, id, p)
			return err
		},
		remove: svc.Delete,
	}
}

// actionApplier needs the owning program, carried as pdfcp_id in the payload.
type actionApplier struct{ svc ActionService }

func ActionApplier(svc ActionService) Applier { return actionApplier{svc: svc} }

func (actionApplier) Table() string { return types.Action{}.TableName() }

type actionEnvelope struct {
	PdfcpID uuid.UUID `json:"pdfcp_id"`
}

func (a actionApplier) Apply(dbc dbctx.Context, it *types.SyncItem) error {
	env, err := decodePayload[actionEnvelope](it)
	if err != nil {
		return err
	}
	if env.PdfcpID == uuid.Nil {
		return apierr.BadRequest("invalid_pdfcp_id", errors.New("pdfcp_id is required in the payload"))
	}
	switch it.Operation {
	case syncq.OpInsert:
		in, err := decodePayload[ActionInput](it)
		if err != nil {
			return err
		}
		_, err = a.svc.Create(dbc, env.PdfcpID, in)
		return err
	case syncq.OpUpdate:
		if it.RecordID == nil {
			return apierr.BadRequest("invalid_request", errMissingRecordID)
		}
		p, err := decodePayload[ActionPatch](it)
		if err != nil {
			return err
		}
		_, err = a.svc.Patch(dbc, env.PdfcpID, *it.RecordID, p)
		return err
	case syncq.OpDelete:
		if it.RecordID == nil {
			return apierr.BadRequest("invalid_request", errMissingRecordID)
		}
		return a.svc.Delete(dbc, env.PdfcpID, *it.RecordID)
	}
	return apierr.BadRequest("invalid_operation", fmt.Errorf("unknown operation %q", it.Operation))
}

