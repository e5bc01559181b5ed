package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type recordService[T, In, Patch any] interface {
	List(dbc dbctx.Context, q services.FieldQuery) ([]*T, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*T, error)
	Create(dbc dbctx.Context, in In) (*T, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch Patch) (*T, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

// RecordHandler serves the CRUD routes shared by the field record collections.
type RecordHandler[T, In, Patch any] struct {
	log    *logger.Logger
	svc    recordService[T, In, Patch]
	plural string
	single string
}

func newRecordHandler[T, In, Patch any](log *logger.Logger, name, plural, single string, svc recordService[T, In, Patch]) *RecordHandler[T, In, Patch] {
	return &RecordHandler[T, In, Patch]{log: log.With("handler", name), svc: svc, plural: plural, single: single}
}

type (
	ActivityHandler     = RecordHandler[types.Activity, services.ActivityInput, services.ActivityPatch]
	OrganizationHandler = RecordHandler[types.Organization, services.OrganizationInput, services.OrganizationPatch]
	JournalHandler      = RecordHandler[types.JournalEntry, services.JournalEntryInput, services.JournalEntryPatch]
)

func NewActivityHandler(log *logger.Logger, svc services.ActivityService) *ActivityHandler {
	return newRecordHandler[types.Activity, services.ActivityInput, services.ActivityPatch](log, "ActivityHandler", "activities", "activity", svc)
}

func NewOrganizationHandler(log *logger.Logger, svc services.OrganizationService) *OrganizationHandler {
	return newRecordHandler[types.Organization, services.OrganizationInput, services.OrganizationPatch](log, "OrganizationHandler", "organizations", "organization", svc)
}

func NewJournalHandler(log *logger.Logger, svc services.JournalService) *JournalHandler {
	return newRecordHandler[types.JournalEntry, services.JournalEntryInput, services.JournalEntryPatch](log, "JournalHandler", "entries", "entry", svc)
}

func fieldQuery(c *gin.Context) (services.FieldQuery, bool) {
	ids, ok := queryUUIDs(c, "dranef_id", "dpanef_id", "commune_id", "adp_user_id", "pdfcp_id")
	if !ok {
		return services.FieldQuery{}, false
	}
	return services.FieldQuery{
		DranefID:  ids[0],
		DpanefID:  ids[1],
		CommuneID: ids[2],
		AdpUserID: ids[3],
		PdfcpID:   ids[4],
	}, true
}

func (h *RecordHandler[T, In, Patch]) List(c *gin.Context) {
	q, ok := fieldQuery(c)
	if !ok {
		return
	}
	rows, err := h.svc.List(dbcOf(c), q)
	if err != nil {
		fail(c, h.log, "List", err)
		return
	}
	response.RespondOK(c, gin.H{h.plural: rows})
}

func (h *RecordHandler[T, In, Patch]) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	row, err := h.svc.Get(dbcOf(c), id)
	if err != nil {
		fail(c, h.log, "Get", err)
		return
	}
	response.RespondOK(c, gin.H{h.single: row})
}

func (h *RecordHandler[T, In, Patch]) Create(c *gin.Context) {
	var in In
	if !bindJSON(c, &in) {
		return
	}
	row, err := h.svc.Create(dbcOf(c), in)
	if err != nil {
		fail(c, h.log, "Create", err)
		return
	}
	response.RespondCreated(c, gin.H{h.single: row})
}

func (h *RecordHandler[T, In, Patch]) Patch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	var patch Patch
	if !bindJSON(c, &patch) {
		return
	}
	row, err := h.svc.Patch(dbcOf(c), id, patch)
	if err != nil {
		fail(c, h.log, "Patch", err)
		return
	}
	response.RespondOK(c, gin.H{h.single: row})
}

func (h *RecordHandler[T, In, Patch]) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	if err := h.svc.Delete(dbcOf(c), id); err != nil {
		fail(c, h.log, "Delete", err)
		return
	}
	response.RespondNoContent(c)
}

type ConflictHandler struct {
	*RecordHandler[types.Conflict, services.ConflictInput, services.ConflictPatch]
	conflicts services.ConflictService
}

func NewConflictHandler(log *logger.Logger, svc services.ConflictService) *ConflictHandler {
	return &ConflictHandler{
		RecordHandler: newRecordHandler[types.Conflict, services.ConflictInput, services.ConflictPatch](log, "ConflictHandler", "conflicts", "conflict", svc),
		conflicts:     svc,
	}
}

// GET /api/conflicts/metrics
func (h *ConflictHandler) Metrics(c *gin.Context) {
	q, ok := fieldQuery(c)
	if !ok {
		return
	}
	m, err := h.conflicts.Metrics(dbcOf(c), q)
	if err != nil {
		fail(c, h.log, "ConflictMetrics", err)
		return
	}
	response.RespondOK(c, gin.H{"metrics": m})
}
