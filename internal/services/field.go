package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

// FieldQuery narrows field-record lists; results are always scope-filtered.
type FieldQuery struct {
	DranefID  *uuid.UUID
	DpanefID  *uuid.UUID
	CommuneID *uuid.UUID
	AdpUserID *uuid.UUID
	PdfcpID   *uuid.UUID
}

func (q FieldQuery) filter() repos.FieldFilter {
	return repos.FieldFilter{
		DranefID:  q.DranefID,
		DpanefID:  q.DpanefID,
		CommuneID: q.CommuneID,
		AdpUserID: q.AdpUserID,
		PdfcpID:   q.PdfcpID,
	}
}

// AnchorInput is the placement a client may send with a new record.
type AnchorInput struct {
	CommuneID *uuid.UUID `json:"commune_id"`
	DpanefID  *uuid.UUID `json:"dpanef_id"`
	DranefID  *uuid.UUID `json:"dranef_id"`
	AdpUserID *uuid.UUID `json:"adp_user_id"`
}

type AnchorPatch struct {
	CommuneID OptionalUUID `json:"commune_id"`
	AdpUserID OptionalUUID `json:"adp_user_id"`
}

type fieldRepo[T any] interface {
	Create(dbc dbctx.Context, row *T) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*T, error)
	List(dbc dbctx.Context, f repos.FieldFilter) ([]*T, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type scopedRow[T any] interface {
	*T
	rbac.Scoped
}

// fieldRecords is the scope-checked CRUD shared by the field record services.
type fieldRecords[T any, P scopedRow[T]] struct {
	what      string
	repo      fieldRepo[T]
	programs  repos.ProgramRepo
	territory TerritoryService
}

func (f fieldRecords[T, P]) list(dbc dbctx.Context, scope rbac.UserScope, q FieldQuery) ([]*T, error) {
	rows, err := f.repo.List(dbc, q.filter())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.what, err)
	}
	h, err := f.territory.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, r := range rows {
		if rbac.Allows(P(r).ScopeAnchors(), scope, h) {
			out = append(out, r)
		}
	}
	return out, nil
}

// get returns 404 for rows outside the caller's scope.
func (f fieldRecords[T, P]) get(dbc dbctx.Context, scope rbac.UserScope, id uuid.UUID) (*T, error) {
	row, err := f.repo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.what, err)
	}
	if row == nil {
		return nil, notFound(f.what)
	}
	h, err := f.territory.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	if !rbac.Allows(P(row).ScopeAnchors(), scope, h) {
		return nil, notFound(f.what)
	}
	return row, nil
}

// place completes the anchors of a new record. A linked program lends its
// commune when none is given; LOCAL callers own what they create.
func (f fieldRecords[T, P]) place(dbc dbctx.Context, rd *ctxutil.RequestData, in AnchorInput, pdfcpID *uuid.UUID) (types.Anchored, error) {
	if pdfcpID != nil && f.programs != nil {
		p, err := f.programs.GetByID(dbc, *pdfcpID)
		if err != nil {
			return types.Anchored{}, fmt.Errorf("load program: %w", err)
		}
		if p == nil {
			return types.Anchored{}, invalid("invalid_pdfcp_id", "unknown program %s", *pdfcpID)
		}
		if in.CommuneID == nil && in.DpanefID == nil && in.DranefID == nil {
			in.CommuneID, in.DpanefID, in.DranefID = p.CommuneID, p.DpanefID, p.DranefID
		}
	}
	h, err := f.territory.Hierarchy(dbc)
	if err != nil {
		return types.Anchored{}, err
	}
	if in.CommuneID != nil && !h.HasCommune(*in.CommuneID) {
		return types.Anchored{}, invalid("invalid_commune", "unknown commune %s", *in.CommuneID)
	}
	pl, err := h.Complete(Placement{DranefID: in.DranefID, DpanefID: in.DpanefID, CommuneID: in.CommuneID})
	if err != nil {
		return types.Anchored{}, err
	}
	a := types.Anchored{CommuneID: pl.CommuneID, DpanefID: pl.DpanefID, DranefID: pl.DranefID, AdpUserID: in.AdpUserID}
	if a.AdpUserID == nil && rd.Scope.Level == rbac.ScopeLocal {
		id := rd.UserID
		a.AdpUserID = &id
	}
	return a, nil
}

// reanchor applies an anchor patch, re-deriving the upper levels from a new commune.
func (f fieldRecords[T, P]) reanchor(dbc dbctx.Context, cur *types.Anchored, patch AnchorPatch, updates patchSet) error {
	if patch.CommuneID.Set {
		cur.CommuneID, cur.DpanefID, cur.DranefID = nil, nil, nil
		if patch.CommuneID.Value != nil {
			h, err := f.territory.Hierarchy(dbc)
			if err != nil {
				return err
			}
			if !h.HasCommune(*patch.CommuneID.Value) {
				return invalid("invalid_commune", "unknown commune %s", *patch.CommuneID.Value)
			}
			pl, err := h.Complete(Placement{CommuneID: patch.CommuneID.Value})
			if err != nil {
				return err
			}
			cur.CommuneID, cur.DpanefID, cur.DranefID = pl.CommuneID, pl.DpanefID, pl.DranefID
		}
		updates["commune_id"] = cur.CommuneID
		updates["dpanef_id"] = cur.DpanefID
		updates["dranef_id"] = cur.DranefID
	}
	if patch.AdpUserID.Set {
		cur.AdpUserID = patch.AdpUserID.Value
		updates.setUUID("adp_user_id", patch.AdpUserID)
	}
	return nil
}

// ensureVisible refuses writes that would move a record outside the caller's scope.
func (f fieldRecords[T, P]) ensureVisible(dbc dbctx.Context, scope rbac.UserScope, row *T) error {
	h, err := f.territory.Hierarchy(dbc)
	if err != nil {
		return err
	}
	if !rbac.Allows(P(row).ScopeAnchors(), scope, h) {
		return apierr.Forbidden("out_of_scope", fmt.Errorf("%w: %s outside your territory", pkgerrors.ErrForbidden, f.what))
	}
	return nil
}

func (f fieldRecords[T, P]) create(dbc dbctx.Context, scope rbac.UserScope, row *T) error {
	if err := f.ensureVisible(dbc, scope, row); err != nil {
		return err
	}
	if err := f.repo.Create(dbc, row); err != nil {
		return fmt.Errorf("create %s: %w", f.what, err)
	}
	return nil
}

// update writes the collected columns and reloads the row.
func (f fieldRecords[T, P]) update(dbc dbctx.Context, scope rbac.UserScope, id uuid.UUID, merged *T, updates patchSet) (*T, error) {
	if err := f.ensureVisible(dbc, scope, merged); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := f.repo.UpdateFields(dbc, id, updates); err != nil {
			return nil, fmt.Errorf("update %s: %w", f.what, err)
		}
	}
	row, err := f.repo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("reload %s: %w", f.what, err)
	}
	if row == nil {
		return nil, notFound(f.what)
	}
	return row, nil
}

func (f fieldRecords[T, P]) remove(dbc dbctx.Context, id uuid.UUID) error {
	if err := f.repo.Delete(dbc, id); err != nil {
		return fmt.Errorf("delete %s: %w", f.what, err)
	}
	return nil
}
