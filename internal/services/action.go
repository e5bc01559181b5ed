package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
	"github.com/anef-maroc/pdfcp-backend/internal/geo"
	"github.com/anef-maroc/pdfcp-backend/internal/pdfcp/reconcile"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type ActionInput struct {
	Etat               string          `json:"etat"`
	Year               int             `json:"year"`
	ActionKey          string          `json:"action_key"`
	ActionLabel        string          `json:"action_label"`
	ActionType         string          `json:"action_type"`
	Unite              string          `json:"unite"`
	Physique           float64         `json:"physique"`
	Financier          float64         `json:"financier"`
	CommuneID          *uuid.UUID      `json:"commune_id"`
	PerimetreID        string          `json:"perimetre_id"`
	SiteID             string          `json:"site_id"`
	SourcePlanLineID   *uuid.UUID      `json:"source_plan_line_id"`
	SourceCPLineID     *uuid.UUID      `json:"source_cp_line_id"`
	JustificationEcart string          `json:"justification_ecart"`
	DateRealisation    *Date           `json:"date_realisation"`
	StatutExecution    string          `json:"statut_execution"`
	StatutLigneCP      string          `json:"statut_ligne_cp"`
	Preuves            []types.Proof   `json:"preuves"`
	Notes              string          `json:"notes"`
	GeometryType       string          `json:"geometry_type"`
	Coordinates        json.RawMessage `json:"coordinates"`
}

// ActionPatch leaves etat untouched; a line never changes layer.
type ActionPatch struct {
	Year               OptionalInt     `json:"year"`
	ActionKey          OptionalString  `json:"action_key"`
	ActionLabel        OptionalString  `json:"action_label"`
	ActionType         OptionalString  `json:"action_type"`
	Unite              OptionalString  `json:"unite"`
	Physique           OptionalFloat64 `json:"physique"`
	Financier          OptionalFloat64 `json:"financier"`
	CommuneID          OptionalUUID    `json:"commune_id"`
	PerimetreID        OptionalString  `json:"perimetre_id"`
	SiteID             OptionalString  `json:"site_id"`
	SourcePlanLineID   OptionalUUID    `json:"source_plan_line_id"`
	SourceCPLineID     OptionalUUID    `json:"source_cp_line_id"`
	JustificationEcart OptionalString  `json:"justification_ecart"`
	DateRealisation    OptionalDate    `json:"date_realisation"`
	StatutExecution    OptionalString  `json:"statut_execution"`
	StatutLigneCP      OptionalString  `json:"statut_ligne_cp"`
	Preuves            *[]types.Proof  `json:"preuves"`
	Notes              OptionalString  `json:"notes"`
	GeometryType       OptionalString  `json:"geometry_type"`
	Coordinates        OptionalJSON    `json:"coordinates"`
}

type ActionResult struct {
	*types.Action
	NeedsProof bool             `json:"needs_proof"`
	Geo        *types.ActionGeo `json:"geo,omitempty"`
}

type ActionService interface {
	List(dbc dbctx.Context, pdfcpID uuid.UUID, f repos.ActionFilter) ([]*ActionResult, error)
	Create(dbc dbctx.Context, pdfcpID uuid.UUID, in ActionInput) (*ActionResult, error)
	Patch(dbc dbctx.Context, pdfcpID, actionID uuid.UUID, patch ActionPatch) (*ActionResult, error)
	Delete(dbc dbctx.Context, pdfcpID, actionID uuid.UUID) error
}

type actionService struct {
	db      *gorm.DB
	log     *logger.Logger
	tx      repos.TxRunner
	actions repos.ActionRepo
	geo     repos.ActionGeoRepo
	guard   programGuard
}

func NewActionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	tx repos.TxRunner,
	programs repos.ProgramRepo,
	actions repos.ActionRepo,
	geoRepo repos.ActionGeoRepo,
	territory TerritoryService,
) ActionService {
	return &actionService{
		db:      db,
		log:     baseLog.With("service", "ActionService"),
		tx:      tx,
		actions: actions,
		geo:     geoRepo,
		guard:   programGuard{programs: programs, territory: territory},
	}
}

func (s *actionService) List(dbc dbctx.Context, pdfcpID uuid.UUID, f repos.ActionFilter) ([]*ActionResult, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if f.Etat != "" && !f.Etat.Valid() {
		return nil, invalid("invalid_etat", "unknown etat %q", f.Etat)
	}
	if _, err := s.guard.load(dbc, rd.Scope, pdfcpID, false); err != nil {
		return nil, err
	}
	rows, err := s.actions.ListByProgram(dbc, pdfcpID, f)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	geos, err := s.geo.ListByProgram(dbc, pdfcpID)
	if err != nil {
		return nil, fmt.Errorf("list action geometry: %w", err)
	}
	byAction := make(map[uuid.UUID]*types.ActionGeo, len(geos))
	for _, g := range geos {
		byAction[g.PlannedActionID] = g
	}
	out := make([]*ActionResult, 0, len(rows))
	for _, a := range rows {
		out = append(out, &ActionResult{Action: a, NeedsProof: reconcile.NeedsProof(*a), Geo: byAction[a.ID]})
	}
	return out, nil
}

func (s *actionService) Create(dbc dbctx.Context, pdfcpID uuid.UUID, in ActionInput) (*ActionResult, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	etat := types.Etat(strings.ToUpper(strings.TrimSpace(in.Etat)))
	if !etat.Valid() {
		return nil, invalid("invalid_etat", "etat must be one of CONCERTE, CP, EXECUTE")
	}
	a := &types.Action{
		Etat:               etat,
		Year:               in.Year,
		ActionKey:          strings.TrimSpace(in.ActionKey),
		ActionLabel:        strings.TrimSpace(in.ActionLabel),
		ActionType:         strings.TrimSpace(in.ActionType),
		Unite:              strings.TrimSpace(in.Unite),
		Physique:           in.Physique,
		Financier:          in.Financier,
		CommuneID:          in.CommuneID,
		PerimetreID:        strings.TrimSpace(in.PerimetreID),
		SiteID:             strings.TrimSpace(in.SiteID),
		SourcePlanLineID:   in.SourcePlanLineID,
		SourceCPLineID:     in.SourceCPLineID,
		JustificationEcart: strings.TrimSpace(in.JustificationEcart),
		DateRealisation:    in.DateRealisation.Ptr(),
		StatutExecution:    strings.TrimSpace(in.StatutExecution),
		StatutLigneCP:      strings.TrimSpace(in.StatutLigneCP),
		Preuves:            datatypes.JSONSlice[types.Proof](in.Preuves),
		Notes:              in.Notes,
		CreatedBy:          &rd.UserID,
	}
	if a.Preuves == nil {
		a.Preuves = datatypes.JSONSlice[types.Proof]{}
	}

	var result *ActionResult
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.editable(inner, rd.Scope, pdfcpID)
		if err != nil {
			return err
		}
		a.PdfcpID = p.ID
		a.Locked = p.Locked
		if a.CommuneID == nil {
			a.CommuneID = p.CommuneID
		}
		if err := s.validate(inner, p, a); err != nil {
			return err
		}
		shape, err := applyGeometry(a, in.GeometryType, in.Coordinates)
		if err != nil {
			return err
		}
		if err := s.actions.Create(inner, a); err != nil {
			return fmt.Errorf("create action: %w", err)
		}
		row, err := s.saveGeo(inner, a, shape)
		if err != nil {
			return err
		}
		result = &ActionResult{Action: a, NeedsProof: reconcile.NeedsProof(*a), Geo: row}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("action created", "pdfcp_id", pdfcpID, "action_id", a.ID, "etat", a.Etat)
	return result, nil
}

func (s *actionService) Patch(dbc dbctx.Context, pdfcpID, actionID uuid.UUID, patch ActionPatch) (*ActionResult, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	var result *ActionResult
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.editable(inner, rd.Scope, pdfcpID)
		if err != nil {
			return err
		}
		a, err := s.loadLine(inner, p.ID, actionID, rd.Scope.Level)
		if err != nil {
			return err
		}

		merged := *a
		updates := patchSet{}
		if patch.Year.Set {
			merged.Year = 0
			if patch.Year.Value != nil {
				merged.Year = *patch.Year.Value
			}
			updates["year"] = merged.Year
		}
		if patch.ActionKey.Set {
			merged.ActionKey = patch.ActionKey.Or("")
			updates["action_key"] = merged.ActionKey
		}
		stringField(updates, "action_label", patch.ActionLabel, &merged.ActionLabel)
		stringField(updates, "action_type", patch.ActionType, &merged.ActionType)
		stringField(updates, "unite", patch.Unite, &merged.Unite)
		stringField(updates, "perimetre_id", patch.PerimetreID, &merged.PerimetreID)
		stringField(updates, "site_id", patch.SiteID, &merged.SiteID)
		stringField(updates, "justification_ecart", patch.JustificationEcart, &merged.JustificationEcart)
		stringField(updates, "statut_execution", patch.StatutExecution, &merged.StatutExecution)
		stringField(updates, "statut_ligne_cp", patch.StatutLigneCP, &merged.StatutLigneCP)
		stringField(updates, "notes", patch.Notes, &merged.Notes)
		if patch.Physique.Set {
			merged.Physique = floatOr(patch.Physique, 0)
			updates["physique"] = merged.Physique
		}
		if patch.Financier.Set {
			merged.Financier = floatOr(patch.Financier, 0)
			updates["financier"] = merged.Financier
		}
		if patch.CommuneID.Set {
			merged.CommuneID = patch.CommuneID.Value
			updates.setUUID("commune_id", patch.CommuneID)
		}
		if patch.SourcePlanLineID.Set {
			merged.SourcePlanLineID = patch.SourcePlanLineID.Value
			updates.setUUID("source_plan_line_id", patch.SourcePlanLineID)
		}
		if patch.SourceCPLineID.Set {
			merged.SourceCPLineID = patch.SourceCPLineID.Value
			updates.setUUID("source_cp_line_id", patch.SourceCPLineID)
		}
		if patch.DateRealisation.Set {
			merged.DateRealisation = patch.DateRealisation.Value
			updates.setDate("date_realisation", patch.DateRealisation)
		}
		if patch.Preuves != nil {
			merged.Preuves = datatypes.JSONSlice[types.Proof](*patch.Preuves)
			if merged.Preuves == nil {
				merged.Preuves = datatypes.JSONSlice[types.Proof]{}
			}
			updates["preuves"] = merged.Preuves
		}
		if err := s.validate(inner, p, &merged); err != nil {
			return err
		}
		if merged.Etat == types.EtatConcerte && (patch.Physique.Set || patch.Financier.Set) {
			if err := s.recheckCPLines(inner, &merged); err != nil {
				return err
			}
		}

		var shape *geo.Shape
		clearGeo := false
		if patch.Coordinates.Set || patch.GeometryType.Set {
			var raw json.RawMessage
			switch {
			case patch.Coordinates.Set && patch.Coordinates.Value != nil:
				raw = *patch.Coordinates.Value
			case !patch.Coordinates.Set:
				raw = json.RawMessage(a.Coordinates)
			}
			shape, err = applyGeometry(&merged, patch.GeometryType.Or(""), raw)
			if err != nil {
				return err
			}
			clearGeo = shape == nil
			updates["geometry_type"] = merged.GeometryType
			updates["coordinates"] = merged.Coordinates
		}

		if len(updates) > 0 {
			if err := s.actions.UpdateFields(inner, a.ID, updates); err != nil {
				return fmt.Errorf("update action: %w", err)
			}
		}
		var row *types.ActionGeo
		switch {
		case shape != nil:
			row, err = s.saveGeo(inner, &merged, shape)
		case clearGeo:
			err = s.geo.DeleteByAction(inner, a.ID)
		default:
			row, err = s.geo.GetByAction(inner, a.ID)
		}
		if err != nil {
			return err
		}
		fresh, err := s.actions.GetByID(inner, a.ID)
		if err != nil {
			return fmt.Errorf("reload action: %w", err)
		}
		result = &ActionResult{Action: fresh, NeedsProof: reconcile.NeedsProof(*fresh), Geo: row}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *actionService) Delete(dbc dbctx.Context, pdfcpID, actionID uuid.UUID) error {
	rd, err := requireActor(dbc)
	if err != nil {
		return err
	}
	return runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.editable(inner, rd.Scope, pdfcpID)
		if err != nil {
			return err
		}
		a, err := s.loadLine(inner, p.ID, actionID, rd.Scope.Level)
		if err != nil {
			return err
		}
		deps, err := s.dependents(inner, a)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return apierr.Conflict("line_in_use", fmt.Errorf("%w: %d line(s) are sourced from this line", pkgerrors.ErrConflict, len(deps)))
		}
		if err := s.geo.DeleteByAction(inner, a.ID); err != nil {
			return fmt.Errorf("delete action geometry: %w", err)
		}
		if err := s.actions.Delete(inner, a.ID); err != nil {
			return fmt.Errorf("delete action: %w", err)
		}
		return nil
	})
}

// loadLine fetches a line of the program and refuses locked lines.
func (s *actionService) loadLine(dbc dbctx.Context, pdfcpID, actionID uuid.UUID, level rbac.ScopeLevel) (*types.Action, error) {
	a, err := s.actions.GetByID(dbc, actionID)
	if err != nil {
		return nil, fmt.Errorf("load action: %w", err)
	}
	if a == nil || a.PdfcpID != pdfcpID {
		return nil, notFound("action")
	}
	if a.Locked && level != rbac.ScopeAdmin {
		return nil, lockedErr("action line")
	}
	return a, nil
}

// validate applies the layer rules to a complete line.
func (s *actionService) validate(dbc dbctx.Context, p *types.Program, a *types.Action) error {
	if a.ActionKey == "" {
		return invalid("invalid_request", "action_key is required")
	}
	if !p.CoversYear(a.Year) {
		return invalid("invalid_year", "year %d is outside the program span %d-%d", a.Year, p.StartYear, p.EndYear)
	}
	if a.Physique < 0 || a.Financier < 0 {
		return invalid("invalid_request", "physique and financier cannot be negative")
	}
	if err := checkEnum("invalid_statut_execution", "statut_execution", a.StatutExecution, pdfcp.ExecutionStatuses); err != nil {
		return err
	}
	if err := checkEnum("invalid_statut_ligne_cp", "statut_ligne_cp", a.StatutLigneCP, pdfcp.LigneCPStatuses); err != nil {
		return err
	}

	switch a.Etat {
	case types.EtatConcerte:
		if a.SourcePlanLineID != nil || a.SourceCPLineID != nil {
			return invalid("invalid_source", "a CONCERTE line has no source line")
		}
	case types.EtatCP:
		if a.SourceCPLineID != nil {
			return invalid("invalid_source", "a CP line references a CONCERTE line only")
		}
		src, err := s.source(dbc, p.ID, a.SourcePlanLineID, types.EtatConcerte)
		if err != nil {
			return err
		}
		if err := reconcile.ValidateCPLine(*a, src); err != nil {
			if errors.Is(err, reconcile.ErrJustificationRequired) {
				return apierr.BadRequest("justification_required", err)
			}
			return err
		}
	case types.EtatExecute:
		if a.SourcePlanLineID != nil {
			return invalid("invalid_source", "an EXECUTE line references a CP line only")
		}
		if _, err := s.source(dbc, p.ID, a.SourceCPLineID, types.EtatCP); err != nil {
			return err
		}
	}
	return nil
}

// recheckCPLines revalidates the CP lines sourced from a changed CONCERTE line.
func (s *actionService) recheckCPLines(dbc dbctx.Context, src *types.Action) error {
	deps, err := s.dependents(dbc, src)
	if err != nil {
		return err
	}
	for _, d := range deps {
		if d.Etat != types.EtatCP {
			continue
		}
		if err := reconcile.ValidateCPLine(*d, src); err != nil {
			if errors.Is(err, reconcile.ErrJustificationRequired) {
				return apierr.BadRequest("justification_required", fmt.Errorf("CP line %s: %w", d.ID, err))
			}
			return err
		}
	}
	return nil
}

// dependents lists the lines of the program whose source is src.
func (s *actionService) dependents(dbc dbctx.Context, src *types.Action) ([]*types.Action, error) {
	rows, err := s.actions.ListByProgram(dbc, src.PdfcpID, repos.ActionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	var out []*types.Action
	for _, r := range rows {
		if sameID(r.SourcePlanLineID, src.ID) || sameID(r.SourceCPLineID, src.ID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func sameID(p *uuid.UUID, id uuid.UUID) bool { return p != nil && *p == id }

func (s *actionService) source(dbc dbctx.Context, pdfcpID uuid.UUID, id *uuid.UUID, want types.Etat) (*types.Action, error) {
	if id == nil {
		return nil, nil
	}
	src, err := s.actions.GetByID(dbc, *id)
	if err != nil {
		return nil, fmt.Errorf("load source line: %w", err)
	}
	if src == nil || src.PdfcpID != pdfcpID || src.Etat != want {
		return nil, invalid("invalid_source", "source line %s is not a %s line of this program", *id, want)
	}
	return src, nil
}

// applyGeometry validates raw GeoJSON and stores the normalized form on the line.
// An empty payload clears the geometry and returns a nil shape.
func applyGeometry(a *types.Action, geometryType string, raw json.RawMessage) (*geo.Shape, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		a.GeometryType = ""
		a.Coordinates = nil
		return nil, nil
	}
	expected := ""
	if strings.TrimSpace(geometryType) != "" {
		t, ok := geo.NormalizeType(geometryType)
		if !ok {
			return nil, invalid("invalid_geometry", "unknown geometry_type %q", geometryType)
		}
		expected = t
	}
	shape, err := geo.Parse(raw, expected)
	if err != nil {
		return nil, apierr.BadRequest("invalid_geometry", err)
	}
	normalized, err := geo.MarshalGeometry(shape.Geometry)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	a.GeometryType = shape.Type
	a.Coordinates = datatypes.JSON(normalized)
	return shape, nil
}

func (s *actionService) saveGeo(dbc dbctx.Context, a *types.Action, shape *geo.Shape) (*types.ActionGeo, error) {
	if shape == nil {
		return nil, nil
	}
	row := &types.ActionGeo{
		PlannedActionID:    a.ID,
		PdfcpID:            a.PdfcpID,
		GeometryType:       shape.Type,
		Geometry:           a.Coordinates,
		CentroidLat:        shape.Centroid.Lat(),
		CentroidLng:        shape.Centroid.Lon(),
		SurfaceRealiseeHa:  shape.SurfaceHa,
		LongueurRealiseeKm: shape.LengthKm,
	}
	if err := s.geo.Upsert(dbc, row); err != nil {
		return nil, fmt.Errorf("upsert action geometry: %w", err)
	}
	return row, nil
}

func stringField(updates patchSet, col string, o OptionalString, dst *string) {
	if !o.Set {
		return
	}
	*dst = o.Or("")
	updates[col] = *dst
}

func floatOr(o OptionalFloat64, def float64) float64 {
	if o.Value == nil {
		return def
	}
	return *o.Value
}
