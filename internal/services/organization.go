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

type OrganizationInput struct {
	Name               string `json:"name"`
	OrganizationType   string `json:"organization_type"`
	OrganizationStatus string `json:"organization_status"`
	MembersCount       int    `json:"members_count"`
	PresidentName      string `json:"president_name"`
	CreationDate       *Date  `json:"creation_date"`
	AnchorInput
}

type OrganizationPatch struct {
	Name               OptionalString `json:"name"`
	OrganizationType   OptionalString `json:"organization_type"`
	OrganizationStatus OptionalString `json:"organization_status"`
	MembersCount       OptionalInt    `json:"members_count"`
	PresidentName      OptionalString `json:"president_name"`
	CreationDate       OptionalDate   `json:"creation_date"`
	AnchorPatch
}

type OrganizationService interface {
	List(dbc dbctx.Context, q FieldQuery) ([]*types.Organization, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Organization, error)
	Create(dbc dbctx.Context, in OrganizationInput) (*types.Organization, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch OrganizationPatch) (*types.Organization, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type organizationService struct {
	db      *gorm.DB
	log     *logger.Logger
	records fieldRecords[types.Organization, *types.Organization]
}

func NewOrganizationService(db *gorm.DB, baseLog *logger.Logger, repo repos.OrganizationRepo, territory TerritoryService) OrganizationService {
	return &organizationService{
		db:  db,
		log: baseLog.With("service", "OrganizationService"),
		records: fieldRecords[types.Organization, *types.Organization]{
			what:      "organization",
			repo:      repo,
			territory: territory,
		},
	}
}

func (s *organizationService) List(dbc dbctx.Context, q FieldQuery) ([]*types.Organization, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.list(dbc, rd.Scope, q)
}

func (s *organizationService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Organization, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.get(dbc, rd.Scope, id)
}

func (s *organizationService) Create(dbc dbctx.Context, in OrganizationInput) (*types.Organization, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	row := &types.Organization{
		Name:               strings.TrimSpace(in.Name),
		OrganizationType:   strings.TrimSpace(in.OrganizationType),
		OrganizationStatus: strings.TrimSpace(in.OrganizationStatus),
		MembersCount:       in.MembersCount,
		PresidentName:      strings.TrimSpace(in.PresidentName),
		CreationDate:       in.CreationDate.Ptr(),
	}
	if row.OrganizationStatus == "" {
		row.OrganizationStatus = "active"
	}
	if err := validateOrganization(row); err != nil {
		return nil, err
	}
	row.Anchored, err = s.records.place(dbc, rd, in.AnchorInput, nil)
	if err != nil {
		return nil, err
	}
	if err := s.records.create(dbc, rd.Scope, row); err != nil {
		return nil, err
	}
	s.log.Info("organization created", "organization_id", row.ID, "type", row.OrganizationType, "by", rd.UserID)
	return row, nil
}

func (s *organizationService) Patch(dbc dbctx.Context, id uuid.UUID, patch OrganizationPatch) (*types.Organization, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	cur, err := s.records.get(dbc, rd.Scope, id)
	if err != nil {
		return nil, err
	}
	updates := patchSet{}
	stringField(updates, "name", patch.Name, &cur.Name)
	stringField(updates, "organization_type", patch.OrganizationType, &cur.OrganizationType)
	if patch.OrganizationStatus.Set {
		cur.OrganizationStatus = patch.OrganizationStatus.Or("active")
		updates["organization_status"] = cur.OrganizationStatus
	}
	if patch.MembersCount.Set {
		cur.MembersCount = intOr(patch.MembersCount, 0)
		updates["members_count"] = cur.MembersCount
	}
	stringField(updates, "president_name", patch.PresidentName, &cur.PresidentName)
	updates.setDate("creation_date", patch.CreationDate)
	if err := validateOrganization(cur); err != nil {
		return nil, err
	}
	if err := s.records.reanchor(dbc, &cur.Anchored, patch.AnchorPatch, updates); err != nil {
		return nil, err
	}
	return s.records.update(dbc, rd.Scope, id, cur, updates)
}

func (s *organizationService) Delete(dbc dbctx.Context, id uuid.UUID) error {
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

func validateOrganization(o *types.Organization) error {
	if o.Name == "" {
		return invalid("invalid_request", "name is required")
	}
	if o.OrganizationType == "" {
		return invalid("invalid_organization_type", "organization_type is required")
	}
	if err := checkEnum("invalid_organization_type", "organization_type", o.OrganizationType, field.OrganizationTypes); err != nil {
		return err
	}
	if err := checkEnum("invalid_organization_status", "organization_status", o.OrganizationStatus, field.OrganizationStatuses); err != nil {
		return err
	}
	if o.MembersCount < 0 {
		return invalid("invalid_request", "members_count cannot be negative")
	}
	return nil
}
