package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pdfcp/workflow"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

func requireActor(dbc dbctx.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized(pkgerrors.ErrUnauthorized)
	}
	return rd, nil
}

func requireAdmin(dbc dbctx.Context) (*ctxutil.RequestData, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if !rd.Scope.IsAdmin() {
		return nil, apierr.Forbidden("forbidden", fmt.Errorf("%w: admin only", pkgerrors.ErrForbidden))
	}
	return rd, nil
}

type commitHooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// runInTx reuses dbc.Tx when the caller already opened a transaction. Hooks
// registered with afterCommit run once the outermost transaction commits.
func runInTx(dbc dbctx.Context, tx repos.TxRunner, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	hooks := &commitHooks{}
	ctx := context.WithValue(dbc.Ctx, commitHooksKey{}, hooks)
	if err := tx.InTx(ctx, fn); err != nil {
		return err
	}
	hooks.mu.Lock()
	fns := hooks.fns
	hooks.fns = nil
	hooks.mu.Unlock()
	for _, f := range fns {
		f()
	}
	return nil
}

// afterCommit defers f until the surrounding runInTx commits. Outside of one it runs f now.
func afterCommit(dbc dbctx.Context, f func()) {
	hooks, _ := dbc.Ctx.Value(commitHooksKey{}).(*commitHooks)
	if dbc.Tx == nil || hooks == nil {
		f()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, f)
	hooks.mu.Unlock()
}

func notFound(what string) error {
	return apierr.NotFound(fmt.Errorf("%s %w", what, pkgerrors.ErrNotFound))
}

func invalid(code, format string, args ...any) error {
	return apierr.BadRequest(code, fmt.Errorf("%w: %s", pkgerrors.ErrInvalidArgument, fmt.Sprintf(format, args...)))
}

func lockedErr(what string) error {
	return apierr.Locked(fmt.Errorf("%s is %w", what, pkgerrors.ErrLocked))
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func checkEnum(code, field, v string, allowed []string) error {
	if v == "" || oneOf(v, allowed) {
		return nil
	}
	return invalid(code, "%s must be one of %s", field, strings.Join(allowed, ", "))
}

// programLocked is true when the program refuses edits from this scope.
func programLocked(p *types.Program, level rbac.ScopeLevel) bool {
	if level == rbac.ScopeAdmin {
		return false
	}
	return p.Locked || workflow.IsLockedForScope(p.ValidationStatus, level)
}

// programGuard loads a program and enforces the caller's scope on it.
type programGuard struct {
	programs  repos.ProgramRepo
	territory TerritoryService
}

func (g programGuard) load(dbc dbctx.Context, scope rbac.UserScope, id uuid.UUID, forUpdate bool) (*types.Program, error) {
	var (
		p   *types.Program
		err error
	)
	if forUpdate {
		p, err = g.programs.GetForUpdate(dbc, id)
	} else {
		p, err = g.programs.GetByID(dbc, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	if p == nil {
		return nil, notFound("program")
	}
	h, err := g.territory.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	if !rbac.AllowsItem(*p, scope, h) {
		return nil, notFound("program")
	}
	return p, nil
}

// editable loads a program the caller may also modify.
func (g programGuard) editable(dbc dbctx.Context, scope rbac.UserScope, id uuid.UUID) (*types.Program, error) {
	p, err := g.load(dbc, scope, id, dbc.Tx != nil)
	if err != nil {
		return nil, err
	}
	if programLocked(p, scope.Level) {
		return nil, lockedErr("program")
	}
	return p, nil
}
