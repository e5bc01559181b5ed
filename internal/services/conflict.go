package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/stats"
)

const conflictResolved = "resolu"

var conflictTypes = []string{field.ConflictTypeConflit, field.ConflictTypeOpposition}

type ConflictInput struct {
	ConflictType        string          `json:"conflict_type"`
	Nature              string          `json:"nature"`
	Description         string          `json:"description"`
	Status              string          `json:"status"`
	Severity            string          `json:"severity"`
	PartiesInvolved     json.RawMessage `json:"parties_involved"`
	SuperficieOpposeeHa *float64        `json:"superficie_opposee_ha"`
	SuperficieLeveeHa   *float64        `json:"superficie_levee_ha"`
	DateReported        *Date           `json:"date_reported"`
	ResolutionDate      *Date           `json:"resolution_date"`
	ResolutionNotes     string          `json:"resolution_notes"`
	PdfcpID             *uuid.UUID      `json:"pdfcp_id"`
	AnchorInput
}

type ConflictPatch struct {
	ConflictType        OptionalString  `json:"conflict_type"`
	Nature              OptionalString  `json:"nature"`
	Description         OptionalString  `json:"description"`
	Status              OptionalString  `json:"status"`
	Severity            OptionalString  `json:"severity"`
	PartiesInvolved     OptionalJSON    `json:"parties_involved"`
	SuperficieOpposeeHa OptionalFloat64 `json:"superficie_opposee_ha"`
	SuperficieLeveeHa   OptionalFloat64 `json:"superficie_levee_ha"`
	DateReported        OptionalDate    `json:"date_reported"`
	ResolutionDate      OptionalDate    `json:"resolution_date"`
	ResolutionNotes     OptionalString  `json:"resolution_notes"`
	PdfcpID             OptionalUUID    `json:"pdfcp_id"`
	AnchorPatch
}

type ConflictService interface {
	List(dbc dbctx.Context, q FieldQuery) ([]*types.Conflict, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Conflict, error)
	Create(dbc dbctx.Context, in ConflictInput) (*types.Conflict, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch ConflictPatch) (*types.Conflict, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	// Metrics summarizes the conflicts visible to the caller.
	Metrics(dbc dbctx.Context, q FieldQuery) (stats.ConflictMetrics, error)
}

type conflictService struct {
	db      *gorm.DB
	log     *logger.Logger
	records fieldRecords[types.Conflict, *types.Conflict]
}

func NewConflictService(db *gorm.DB, baseLog *logger.Logger, repo repos.ConflictRepo, programs repos.ProgramRepo, territory TerritoryService) ConflictService {
	return &conflictService{
		db:  db,
		log: baseLog.With("service", "ConflictService"),
		records: fieldRecords[types.Conflict, *types.Conflict]{
			what:      "conflict",
			repo:      repo,
			programs:  programs,
			territory: territory,
		},
	}
}

func (s *conflictService) List(dbc dbctx.Context, q FieldQuery) ([]*types.Conflict, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.list(dbc, rd.Scope, q)
}

func (s *conflictService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Conflict, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.get(dbc, rd.Scope, id)
}

func (s *conflictService) Metrics(dbc dbctx.Context, q FieldQuery) (stats.ConflictMetrics, error) {
	rows, err := s.List(dbc, q)
	if err != nil {
		return stats.ConflictMetrics{}, err
	}
	return stats.Metrics(values(rows)), nil
}

func (s *conflictService) Create(dbc dbctx.Context, in ConflictInput) (*types.Conflict, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	row := &types.Conflict{
		ConflictType:        strings.ToLower(strings.TrimSpace(in.ConflictType)),
		Nature:              strings.TrimSpace(in.Nature),
		Description:         strings.TrimSpace(in.Description),
		Status:              strings.TrimSpace(in.Status),
		Severity:            strings.TrimSpace(in.Severity),
		PartiesInvolved:     jsonOrNil(in.PartiesInvolved),
		SuperficieOpposeeHa: in.SuperficieOpposeeHa,
		SuperficieLeveeHa:   in.SuperficieLeveeHa,
		ResolutionDate:      in.ResolutionDate.Ptr(),
		ResolutionNotes:     strings.TrimSpace(in.ResolutionNotes),
		PdfcpID:             in.PdfcpID,
		DateReported:        time.Now().UTC(),
	}
	if d := in.DateReported.Ptr(); d != nil {
		row.DateReported = *d
	}
	if row.Status == "" {
		row.Status = "ouvert"
	}
	if row.Severity == "" {
		row.Severity = "moyenne"
	}
	stampResolution(row)
	if err := validateConflict(row); err != nil {
		return nil, err
	}
	row.Anchored, err = s.records.place(dbc, rd, in.AnchorInput, in.PdfcpID)
	if err != nil {
		return nil, err
	}
	if err := s.records.create(dbc, rd.Scope, row); err != nil {
		return nil, err
	}
	s.log.Info("conflict reported", "conflict_id", row.ID, "opposition", stats.IsOpposition(*row), "by", rd.UserID)
	return row, nil
}

func (s *conflictService) Patch(dbc dbctx.Context, id uuid.UUID, patch ConflictPatch) (*types.Conflict, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	cur, err := s.records.get(dbc, rd.Scope, id)
	if err != nil {
		return nil, err
	}
	updates := patchSet{}
	if patch.ConflictType.Set {
		cur.ConflictType = strings.ToLower(patch.ConflictType.Or(""))
		updates["conflict_type"] = cur.ConflictType
	}
	stringField(updates, "nature", patch.Nature, &cur.Nature)
	stringField(updates, "description", patch.Description, &cur.Description)
	if patch.Status.Set {
		cur.Status = patch.Status.Or("ouvert")
		updates["status"] = cur.Status
		cur.HandledBy = &rd.UserID
		updates["handled_by"] = rd.UserID
	}
	if patch.Severity.Set {
		cur.Severity = patch.Severity.Or("moyenne")
		updates["severity"] = cur.Severity
	}
	if patch.PartiesInvolved.Set {
		cur.PartiesInvolved = nil
		if patch.PartiesInvolved.Value != nil {
			cur.PartiesInvolved = jsonOrNil(*patch.PartiesInvolved.Value)
		}
		updates["parties_involved"] = cur.PartiesInvolved
	}
	if patch.SuperficieOpposeeHa.Set {
		cur.SuperficieOpposeeHa = patch.SuperficieOpposeeHa.Value
		updates.setFloat("superficie_opposee_ha", patch.SuperficieOpposeeHa)
	}
	if patch.SuperficieLeveeHa.Set {
		cur.SuperficieLeveeHa = patch.SuperficieLeveeHa.Value
		updates.setFloat("superficie_levee_ha", patch.SuperficieLeveeHa)
	}
	if patch.DateReported.Set {
		if patch.DateReported.Value == nil {
			return nil, invalid("invalid_request", "date_reported cannot be cleared")
		}
		cur.DateReported = *patch.DateReported.Value
		updates["date_reported"] = cur.DateReported
	}
	if patch.ResolutionDate.Set {
		cur.ResolutionDate = patch.ResolutionDate.Value
	}
	stringField(updates, "resolution_notes", patch.ResolutionNotes, &cur.ResolutionNotes)
	updates.setUUID("pdfcp_id", patch.PdfcpID)
	if patch.ResolutionDate.Set || patch.Status.Set {
		stampResolution(cur)
		updates["resolution_date"] = cur.ResolutionDate
	}
	if err := validateConflict(cur); err != nil {
		return nil, err
	}
	if err := s.records.reanchor(dbc, &cur.Anchored, patch.AnchorPatch, updates); err != nil {
		return nil, err
	}
	return s.records.update(dbc, rd.Scope, id, cur, updates)
}

func (s *conflictService) Delete(dbc dbctx.Context, id uuid.UUID) error {
	rd, err := requireActor(dbc)
	if err != nil {
		return err
	}
	row, err := s.records.get(dbc, rd.Scope, id)
	if err != nil {
		return err
	}
	return s.records.remove(dbc, row.ID)
}

// stampResolution dates a resolved conflict that has no resolution date yet.
func stampResolution(c *types.Conflict) {
	if c.Status == conflictResolved && c.ResolutionDate == nil {
		now := time.Now().UTC()
		c.ResolutionDate = &now
	}
}

func validateConflict(c *types.Conflict) error {
	if c.Nature == "" && c.Description == "" {
		return invalid("invalid_request", "nature or description is required")
	}
	if err := checkEnum("invalid_conflict_type", "conflict_type", c.ConflictType, conflictTypes); err != nil {
		return err
	}
	if err := checkEnum("invalid_status", "status", c.Status, field.ConflictStatuses); err != nil {
		return err
	}
	if err := checkEnum("invalid_severity", "severity", c.Severity, field.ConflictSeverities); err != nil {
		return err
	}
	for _, v := range []*float64{c.SuperficieOpposeeHa, c.SuperficieLeveeHa} {
		if v != nil && *v < 0 {
			return invalid("invalid_request", "surfaces cannot be negative")
		}
	}
	if c.SuperficieOpposeeHa != nil && c.SuperficieLeveeHa != nil && *c.SuperficieLeveeHa > *c.SuperficieOpposeeHa {
		return invalid("invalid_request", "superficie_levee_ha exceeds superficie_opposee_ha")
	}
	return nil
}

func jsonOrNil(raw json.RawMessage) datatypes.JSON {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return datatypes.JSON(trimmed)
}
