package services

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type ActivityInput struct {
	ActivityType       string     `json:"activity_type"`
	ActivityDate       Date       `json:"activity_date"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Location           string     `json:"location"`
	ParticipantsCount  int        `json:"participants_count"`
	BeneficiariesCount int        `json:"beneficiaries_count"`
	PdfcpID            *uuid.UUID `json:"pdfcp_id"`
	ValidationStatus   string     `json:"validation_status"`
	AnchorInput
}

type ActivityPatch struct {
	ActivityType       OptionalString `json:"activity_type"`
	ActivityDate       OptionalDate   `json:"activity_date"`
	Title              OptionalString `json:"title"`
	Description        OptionalString `json:"description"`
	Location           OptionalString `json:"location"`
	ParticipantsCount  OptionalInt    `json:"participants_count"`
	BeneficiariesCount OptionalInt    `json:"beneficiaries_count"`
	PdfcpID            OptionalUUID   `json:"pdfcp_id"`
	ValidationStatus   OptionalString `json:"validation_status"`
	AnchorPatch
}

type ActivityService interface {
	List(dbc dbctx.Context, q FieldQuery) ([]*types.Activity, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error)
	Create(dbc dbctx.Context, in ActivityInput) (*types.Activity, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch ActivityPatch) (*types.Activity, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type activityService struct {
	db      *gorm.DB
	log     *logger.Logger
	records fieldRecords[types.Activity, *types.Activity]
}

func NewActivityService(db *gorm.DB, baseLog *logger.Logger, repo repos.ActivityRepo, programs repos.ProgramRepo, territory TerritoryService) ActivityService {
	return &activityService{
		db:  db,
		log: baseLog.With("service", "ActivityService"),
		records: fieldRecords[types.Activity, *types.Activity]{
			what:      "activity",
			repo:      repo,
			programs:  programs,
			territory: territory,
		},
	}
}

func (s *activityService) List(dbc dbctx.Context, q FieldQuery) ([]*types.Activity, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.list(dbc, rd.Scope, q)
}

func (s *activityService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.get(dbc, rd.Scope, id)
}

func (s *activityService) Create(dbc dbctx.Context, in ActivityInput) (*types.Activity, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	row := &types.Activity{
		ActivityType:       strings.TrimSpace(in.ActivityType),
		ActivityDate:       in.ActivityDate.Time,
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		Location:           strings.TrimSpace(in.Location),
		ParticipantsCount:  in.ParticipantsCount,
		BeneficiariesCount: in.BeneficiariesCount,
		PdfcpID:            in.PdfcpID,
		ValidationStatus:   strings.TrimSpace(in.ValidationStatus),
	}
	if row.ValidationStatus == "" {
		row.ValidationStatus = "draft"
	}
	if err := validateActivity(row); err != nil {
		return nil, err
	}
	row.Anchored, err = s.records.place(dbc, rd, in.AnchorInput, in.PdfcpID)
	if err != nil {
		return nil, err
	}
	if err := s.records.create(dbc, rd.Scope, row); err != nil {
		return nil, err
	}
	s.log.Info("activity created", "activity_id", row.ID, "type", row.ActivityType, "by", rd.UserID)
	return row, nil
}

func (s *activityService) Patch(dbc dbctx.Context, id uuid.UUID, patch ActivityPatch) (*types.Activity, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	cur, err := s.records.get(dbc, rd.Scope, id)
	if err != nil {
		return nil, err
	}
	updates := patchSet{}
	if patch.ActivityType.Set {
		cur.ActivityType = patch.ActivityType.Or("")
		updates["activity_type"] = cur.ActivityType
	}
	if patch.ActivityDate.Set {
		if patch.ActivityDate.Value == nil {
			return nil, invalid("invalid_request", "activity_date cannot be cleared")
		}
		cur.ActivityDate = *patch.ActivityDate.Value
		updates["activity_date"] = cur.ActivityDate
	}
	if patch.Title.Set {
		cur.Title = patch.Title.Or("")
		updates["title"] = cur.Title
	}
	updates.setString("description", patch.Description)
	updates.setString("location", patch.Location)
	if patch.ParticipantsCount.Set {
		cur.ParticipantsCount = intOr(patch.ParticipantsCount, 0)
		updates["participants_count"] = cur.ParticipantsCount
	}
	if patch.BeneficiariesCount.Set {
		cur.BeneficiariesCount = intOr(patch.BeneficiariesCount, 0)
		updates["beneficiaries_count"] = cur.BeneficiariesCount
	}
	updates.setUUID("pdfcp_id", patch.PdfcpID)
	if patch.ValidationStatus.Set {
		cur.ValidationStatus = patch.ValidationStatus.Or("draft")
		updates["validation_status"] = cur.ValidationStatus
	}
	if err := validateActivity(cur); err != nil {
		return nil, err
	}
	if err := s.records.reanchor(dbc, &cur.Anchored, patch.AnchorPatch, updates); err != nil {
		return nil, err
	}
	return s.records.update(dbc, rd.Scope, id, cur, updates)
}

func (s *activityService) Delete(dbc dbctx.Context, id uuid.UUID) error {
	rd, err := requireActor(dbc)
	if err != nil {
		return err
	}
	row, err := s.records.get(dbc, rd.Scope, id)
	if err != nil {
		return err
	}
	if err := s.records.remove(dbc, row.ID); err != nil {
		return err
	}
	s.log.Info("activity deleted", "activity_id", row.ID, "by", rd.UserID)
	return nil
}

func validateActivity(a *types.Activity) error {
	if a.Title == "" {
		return invalid("invalid_request", "title is required")
	}
	if a.ActivityDate.IsZero() {
		return invalid("invalid_request", "activity_date is required")
	}
	if a.ActivityType == "" {
		return invalid("invalid_activity_type", "activity_type is required")
	}
	if err := checkEnum("invalid_activity_type", "activity_type", a.ActivityType, field.ActivityTypes); err != nil {
		return err
	}
	if err := checkEnum("invalid_validation_status", "validation_status", a.ValidationStatus, field.ActivityStatuses); err != nil {
		return err
	}
	if a.ParticipantsCount < 0 || a.BeneficiariesCount < 0 {
		return invalid("invalid_request", "counts cannot be negative")
	}
	return nil
}

func intOr(o OptionalInt, def int) int {
	if o.Value == nil {
		return def
	}
	return *o.Value
}
