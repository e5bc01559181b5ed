package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type JournalEntryInput struct {
	EntryDate               Date            `json:"entry_date"`
	Title                   string          `json:"title"`
	Description             string          `json:"description"`
	Category                string          `json:"category"`
	LocationText            string          `json:"location_text"`
	Latitude                *float64        `json:"latitude"`
	Longitude               *float64        `json:"longitude"`
	PdfcpID                 *uuid.UUID      `json:"pdfcp_id"`
	PerimetreLabel          string          `json:"perimetre_label"`
	SiteLabel               string          `json:"site_label"`
	ParticipantsCount       int             `json:"participants_count"`
	OrganisationsConcernees json.RawMessage `json:"organisations_concernees"`
	TempsPasseMin           int             `json:"temps_passe_min"`
	Priorite                string          `json:"priorite"`
	StatutValidation        string          `json:"statut_validation"`
	ResultatsObtenus        string          `json:"resultats_obtenus"`
	DecisionsPrises         string          `json:"decisions_prises"`
	ProchainesEtapes        string          `json:"prochaines_etapes"`
	ContraintesRencontrees  string          `json:"contraintes_rencontrees"`
	BesoinAppuiHierarchique bool            `json:"besoin_appui_hierarchique"`
	JustificationAppui      string          `json:"justification_appui"`
	Attachments             json.RawMessage `json:"attachments"`
	AnchorInput
}

type JournalEntryPatch struct {
	EntryDate               OptionalDate    `json:"entry_date"`
	Title                   OptionalString  `json:"title"`
	Description             OptionalString  `json:"description"`
	Category                OptionalString  `json:"category"`
	LocationText            OptionalString  `json:"location_text"`
	Latitude                OptionalFloat64 `json:"latitude"`
	Longitude               OptionalFloat64 `json:"longitude"`
	PdfcpID                 OptionalUUID    `json:"pdfcp_id"`
	PerimetreLabel          OptionalString  `json:"perimetre_label"`
	SiteLabel               OptionalString  `json:"site_label"`
	ParticipantsCount       OptionalInt     `json:"participants_count"`
	OrganisationsConcernees OptionalJSON    `json:"organisations_concernees"`
	TempsPasseMin           OptionalInt     `json:"temps_passe_min"`
	Priorite                OptionalString  `json:"priorite"`
	StatutValidation        OptionalString  `json:"statut_validation"`
	ResultatsObtenus        OptionalString  `json:"resultats_obtenus"`
	DecisionsPrises         OptionalString  `json:"decisions_prises"`
	ProchainesEtapes        OptionalString  `json:"prochaines_etapes"`
	ContraintesRencontrees  OptionalString  `json:"contraintes_rencontrees"`
	BesoinAppuiHierarchique OptionalBool    `json:"besoin_appui_hierarchique"`
	JustificationAppui      OptionalString  `json:"justification_appui"`
	Attachments             OptionalJSON    `json:"attachments"`
	AnchorPatch
}

// JournalService manages the agents' field logbook. Entries are edited only
// by their author or agent; ADMIN may edit any of them.
type JournalService interface {
	List(dbc dbctx.Context, q FieldQuery) ([]*types.JournalEntry, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.JournalEntry, error)
	Create(dbc dbctx.Context, in JournalEntryInput) (*types.JournalEntry, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch JournalEntryPatch) (*types.JournalEntry, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type journalService struct {
	db      *gorm.DB
	log     *logger.Logger
	records fieldRecords[types.JournalEntry, *types.JournalEntry]
}

func NewJournalService(db *gorm.DB, baseLog *logger.Logger, repo repos.JournalEntryRepo, programs repos.ProgramRepo, territory TerritoryService) JournalService {
	return &journalService{
		db:  db,
		log: baseLog.With("service", "JournalService"),
		records: fieldRecords[types.JournalEntry, *types.JournalEntry]{
			what:      "journal entry",
			repo:      repo,
			programs:  programs,
			territory: territory,
		},
	}
}

func (s *journalService) List(dbc dbctx.Context, q FieldQuery) ([]*types.JournalEntry, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.list(dbc, rd.Scope, q)
}

func (s *journalService) Get(dbc dbctx.Context, id uuid.UUID) (*types.JournalEntry, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	return s.records.get(dbc, rd.Scope, id)
}

func (s *journalService) Create(dbc dbctx.Context, in JournalEntryInput) (*types.JournalEntry, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	author := rd.UserID
	row := &types.JournalEntry{
		EntryDate:               in.EntryDate.Time,
		Title:                   strings.TrimSpace(in.Title),
		Description:             strings.TrimSpace(in.Description),
		Category:                strings.TrimSpace(in.Category),
		LocationText:            strings.TrimSpace(in.LocationText),
		Latitude:                in.Latitude,
		Longitude:               in.Longitude,
		PdfcpID:                 in.PdfcpID,
		PerimetreLabel:          strings.TrimSpace(in.PerimetreLabel),
		SiteLabel:               strings.TrimSpace(in.SiteLabel),
		UserID:                  &author,
		ParticipantsCount:       in.ParticipantsCount,
		OrganisationsConcernees: jsonOrNil(in.OrganisationsConcernees),
		TempsPasseMin:           in.TempsPasseMin,
		Priorite:                strings.TrimSpace(in.Priorite),
		StatutValidation:        strings.TrimSpace(in.StatutValidation),
		ResultatsObtenus:        strings.TrimSpace(in.ResultatsObtenus),
		DecisionsPrises:         strings.TrimSpace(in.DecisionsPrises),
		ProchainesEtapes:        strings.TrimSpace(in.ProchainesEtapes),
		ContraintesRencontrees:  strings.TrimSpace(in.ContraintesRencontrees),
		BesoinAppuiHierarchique: in.BesoinAppuiHierarchique,
		JustificationAppui:      strings.TrimSpace(in.JustificationAppui),
		Attachments:             jsonOrNil(in.Attachments),
	}
	if row.Category == "" {
		row.Category = "autre"
	}
	if row.Priorite == "" {
		row.Priorite = field.PrioriteMoyenne
	}
	if row.StatutValidation == "" {
		row.StatutValidation = field.StatutBrouillon
	}
	if err := validateJournalEntry(row); err != nil {
		return nil, err
	}
	row.Anchored, err = s.records.place(dbc, rd, in.AnchorInput, in.PdfcpID)
	if err != nil {
		return nil, err
	}
	if err := s.records.create(dbc, rd.Scope, row); err != nil {
		return nil, err
	}
	s.log.Info("journal entry created", "entry_id", row.ID, "category", row.Category, "by", rd.UserID)
	return row, nil
}

func (s *journalService) Patch(dbc dbctx.Context, id uuid.UUID, patch JournalEntryPatch) (*types.JournalEntry, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	cur, err := s.owned(dbc, rd, id)
	if err != nil {
		return nil, err
	}
	updates := patchSet{}
	if patch.EntryDate.Set {
		if patch.EntryDate.Value == nil {
			return nil, invalid("invalid_request", "entry_date cannot be cleared")
		}
		cur.EntryDate = *patch.EntryDate.Value
		updates["entry_date"] = cur.EntryDate
	}
	stringField(updates, "title", patch.Title, &cur.Title)
	stringField(updates, "description", patch.Description, &cur.Description)
	if patch.Category.Set {
		cur.Category = patch.Category.Or("autre")
		updates["category"] = cur.Category
	}
	stringField(updates, "location_text", patch.LocationText, &cur.LocationText)
	if patch.Latitude.Set {
		cur.Latitude = patch.Latitude.Value
		updates.setFloat("latitude", patch.Latitude)
	}
	if patch.Longitude.Set {
		cur.Longitude = patch.Longitude.Value
		updates.setFloat("longitude", patch.Longitude)
	}
	updates.setUUID("pdfcp_id", patch.PdfcpID)
	stringField(updates, "perimetre_label", patch.PerimetreLabel, &cur.PerimetreLabel)
	stringField(updates, "site_label", patch.SiteLabel, &cur.SiteLabel)
	if patch.ParticipantsCount.Set {
		cur.ParticipantsCount = intOr(patch.ParticipantsCount, 0)
		updates["participants_count"] = cur.ParticipantsCount
	}
	if patch.OrganisationsConcernees.Set {
		cur.OrganisationsConcernees = nil
		if patch.OrganisationsConcernees.Value != nil {
			cur.OrganisationsConcernees = jsonOrNil(*patch.OrganisationsConcernees.Value)
		}
		updates["organisations_concernees"] = cur.OrganisationsConcernees
	}
	if patch.TempsPasseMin.Set {
		cur.TempsPasseMin = intOr(patch.TempsPasseMin, 0)
		updates["temps_passe_min"] = cur.TempsPasseMin
	}
	if patch.Priorite.Set {
		cur.Priorite = patch.Priorite.Or(field.PrioriteMoyenne)
		updates["priorite"] = cur.Priorite
	}
	if patch.StatutValidation.Set {
		cur.StatutValidation = patch.StatutValidation.Or(field.StatutBrouillon)
		updates["statut_validation"] = cur.StatutValidation
	}
	stringField(updates, "resultats_obtenus", patch.ResultatsObtenus, &cur.ResultatsObtenus)
	stringField(updates, "decisions_prises", patch.DecisionsPrises, &cur.DecisionsPrises)
	stringField(updates, "prochaines_etapes", patch.ProchainesEtapes, &cur.ProchainesEtapes)
	stringField(updates, "contraintes_rencontrees", patch.ContraintesRencontrees, &cur.ContraintesRencontrees)
	if patch.BesoinAppuiHierarchique.Set {
		cur.BesoinAppuiHierarchique = patch.BesoinAppuiHierarchique.Value != nil && *patch.BesoinAppuiHierarchique.Value
		updates["besoin_appui_hierarchique"] = cur.BesoinAppuiHierarchique
	}
	stringField(updates, "justification_appui", patch.JustificationAppui, &cur.JustificationAppui)
	if patch.Attachments.Set {
		cur.Attachments = nil
		if patch.Attachments.Value != nil {
			cur.Attachments = jsonOrNil(*patch.Attachments.Value)
		}
		updates["attachments"] = cur.Attachments
	}
	if err := validateJournalEntry(cur); err != nil {
		return nil, err
	}
	if err := s.records.reanchor(dbc, &cur.Anchored, patch.AnchorPatch, updates); err != nil {
		return nil, err
	}
	return s.records.update(dbc, rd.Scope, id, cur, updates)
}

func (s *journalService) Delete(dbc dbctx.Context, id uuid.UUID) error {
	rd, err := requireActor(dbc)
	if err != nil {
		return err
	}
	row, err := s.owned(dbc, rd, id)
	if err != nil {
		return err
	}
	if err := s.records.remove(dbc, row.ID); err != nil {
		return err
	}
	s.log.Info("journal entry deleted", "entry_id", row.ID, "by", rd.UserID)
	return nil
}

// owned loads an entry the caller may change.
func (s *journalService) owned(dbc dbctx.Context, rd *ctxutil.RequestData, id uuid.UUID) (*types.JournalEntry, error) {
	row, err := s.records.get(dbc, rd.Scope, id)
	if err != nil {
		return nil, err
	}
	if !rd.Scope.IsAdmin() && !row.OwnedBy(rd.UserID) {
		return nil, apierr.Forbidden("forbidden", fmt.Errorf("%w: entry belongs to another agent", pkgerrors.ErrForbidden))
	}
	return row, nil
}

func validateJournalEntry(j *types.JournalEntry) error {
	if j.Title == "" {
		return invalid("invalid_request", "title is required")
	}
	if j.EntryDate.IsZero() {
		return invalid("invalid_request", "entry_date is required")
	}
	if err := checkEnum("invalid_category", "category", j.Category, field.JournalCategories); err != nil {
		return err
	}
	if err := checkEnum("invalid_priorite", "priorite", j.Priorite, field.JournalPriorites); err != nil {
		return err
	}
	if err := checkEnum("invalid_statut_validation", "statut_validation", j.StatutValidation, field.JournalStatuts); err != nil {
		return err
	}
	if j.ParticipantsCount < 0 || j.TempsPasseMin < 0 {
		return invalid("invalid_request", "counts cannot be negative")
	}
	if j.BesoinAppuiHierarchique && strings.TrimSpace(j.JustificationAppui) == "" {
		return invalid("justification_required", "besoin_appui_hierarchique requires justification_appui")
	}
	return nil
}
