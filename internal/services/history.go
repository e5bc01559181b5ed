package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pdfcp/workflow"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

// historyEntry builds a trail row stamped with the actor.
func historyEntry(rd *ctxutil.RequestData, pdfcpID uuid.UUID, action string, from, to types.ValidationStatus, note string, meta map[string]any) *types.ValidationHistory {
	row := &types.ValidationHistory{
		PdfcpID:    pdfcpID,
		Action:     action,
		FromStatus: string(from),
		ToStatus:   string(to),
		Note:       note,
	}
	if rd != nil {
		id := rd.UserID
		row.PerformedBy = &id
		row.PerformedByName = rd.FullName
		row.PerformedByRole = string(rd.Scope.Level)
	}
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			row.Metadata = datatypes.JSON(raw)
		}
	}
	return row
}

type HistoryService interface {
	List(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.ValidationHistory, error)
	AddNote(dbc dbctx.Context, pdfcpID uuid.UUID, note string) (*types.ValidationHistory, error)
}

type historyService struct {
	db      *gorm.DB
	log     *logger.Logger
	repo    repos.ValidationHistoryRepo
	program programGuard
}

func NewHistoryService(db *gorm.DB, baseLog *logger.Logger, repo repos.ValidationHistoryRepo, programs repos.ProgramRepo, territory TerritoryService) HistoryService {
	return &historyService{
		db:      db,
		log:     baseLog.With("service", "HistoryService"),
		repo:    repo,
		program: programGuard{programs: programs, territory: territory},
	}
}

func (s *historyService) List(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.ValidationHistory, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if _, err := s.program.load(dbc, rd.Scope, pdfcpID, false); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProgram(dbc, pdfcpID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return rows, nil
}

// AddNote appends a comment without moving the program.
func (s *historyService) AddNote(dbc dbctx.Context, pdfcpID uuid.UUID, note string) (*types.ValidationHistory, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, invalid("note_required", "note is required")
	}
	p, err := s.program.load(dbc, rd.Scope, pdfcpID, false)
	if err != nil {
		return nil, err
	}
	status := workflow.Normalize(p.ValidationStatus)
	row := historyEntry(rd, p.ID, workflow.HistoryNote, status, status, note, nil)
	if err := s.repo.Create(dbc, row); err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return row, nil
}
