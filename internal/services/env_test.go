package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

// testEnv is a migrated database with one seeded territory and the users
// every scope level needs.
type testEnv struct {
	t    *testing.T
	db   *gorm.DB
	log  *logger.Logger
	ctx  context.Context
	terr *testutil.Territory
	tx   repos.TxRunner

	territory TerritoryService
	emitter   *recordingEmitter

	admin      *types.User
	national   *types.User
	regional   *types.User
	provincial *types.User
	adp        *types.User
	otherAdp   *types.User
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	terr := testutil.SeedTerritory(t, ctx, db)
	e := &testEnv{
		t:         t,
		db:        db,
		log:       log,
		ctx:       ctx,
		terr:      terr,
		tx:        repos.NewGormTxRunner(db),
		territory: NewTerritoryService(db, log, repos.NewTerritoryRepo(db, log), time.Minute),
		emitter:   &recordingEmitter{},
	}
	e.admin = testutil.SeedUser(t, ctx, db, "admin@anef.ma", "admin")
	e.national = testutil.SeedUser(t, ctx, db, "dg@anef.ma", "adp", func(u *types.User) { u.RoleLabel = "DG" })
	e.regional = testutil.SeedUser(t, ctx, db, "dranef@anef.ma", "adp", func(u *types.User) {
		u.RoleLabel = "DRANEF"
		u.DranefID = &terr.Dranefs[0].ID
	})
	e.provincial = testutil.SeedUser(t, ctx, db, "dpanef@anef.ma", "adp", func(u *types.User) {
		u.RoleLabel = "DPANEF"
		u.DpanefID = &terr.Dpanefs[0].ID
		u.DranefID = &terr.Dranefs[0].ID
	})
	e.adp = testutil.SeedUser(t, ctx, db, "adp@anef.ma", "adp", func(u *types.User) {
		u.DpanefID = &terr.Dpanefs[0].ID
		u.DranefID = &terr.Dranefs[0].ID
		u.CommuneIDs = append(u.CommuneIDs, terr.Communes[0].ID)
	})
	e.otherAdp = testutil.SeedUser(t, ctx, db, "adp2@anef.ma", "adp", func(u *types.User) {
		u.DpanefID = &terr.Dpanefs[1].ID
		u.CommuneIDs = append(u.CommuneIDs, terr.Communes[1].ID)
	})
	return e
}

// as builds a request context acting as u.
func (e *testEnv) as(u *types.User) dbctx.Context {
	rd := &ctxutil.RequestData{UserID: u.ID, FullName: u.FullName, Role: u.Role, Scope: u.Scope()}
	return dbctx.Context{Ctx: ctxutil.WithRequestData(e.ctx, rd)}
}

// program seeds a program on the first commune.
func (e *testEnv) program(status types.ValidationStatus) *types.Program {
	e.t.Helper()
	return testutil.SeedProgram(e.t, e.ctx, e.db, e.terr.Communes[0].ID, e.terr.Dpanefs[0].ID, e.terr.Dranefs[0].ID, status)
}

func (e *testEnv) notifications() NotificationService {
	return NewNotificationService(e.db, e.log, repos.NewNotificationRepo(e.db, e.log), e.emitter, nil)
}

func (e *testEnv) actionService() ActionService {
	return NewActionService(e.db, e.log, e.tx,
		repos.NewProgramRepo(e.db, e.log),
		repos.NewActionRepo(e.db, e.log),
		repos.NewActionGeoRepo(e.db, e.log),
		e.territory,
	)
}

func (e *testEnv) validationService() ValidationService {
	return NewValidationService(e.db, e.log, e.tx,
		repos.NewProgramRepo(e.db, e.log),
		repos.NewActionRepo(e.db, e.log),
		repos.NewValidationHistoryRepo(e.db, e.log),
		repos.NewUserRepo(e.db, e.log),
		e.territory,
		e.notifications(),
		e.emitter,
		nil,
	)
}

func (e *testEnv) unlockRequestService() UnlockRequestService {
	return NewUnlockRequestService(e.db, e.log, e.tx,
		repos.NewUnlockRequestRepo(e.db, e.log),
		repos.NewProgramRepo(e.db, e.log),
		repos.NewUserRepo(e.db, e.log),
		e.territory,
		e.validationService(),
		e.notifications(),
	)
}

// inbox lists every notification of u, newest first.
func (e *testEnv) inbox(u *types.User) []*types.Notification {
	e.t.Helper()
	rows, err := repos.NewNotificationRepo(e.db, e.log).ListForUser(dbctx.Context{Ctx: e.ctx}, u.ID, false, 100)
	require.NoError(e.t, err)
	return rows
}

func requireStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	ae, ok := apierr.As(err)
	require.True(t, ok, "expected an api error, got %v", err)
	require.Equal(t, status, ae.Status, err.Error())
	if code != "" {
		require.Equal(t, code, ae.Code)
	}
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (r *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingEmitter) events(event realtime.SSEEvent) []realtime.SSEMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.SSEMessage
	for _, m := range r.msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}
