package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

// fakeActivities records the last call and answers from canned values.
type fakeActivities struct {
	query   services.FieldQuery
	created services.ActivityInput
	patched services.ActivityPatch
	getErr  error
}

func (f *fakeActivities) List(_ dbctx.Context, q services.FieldQuery) ([]*types.Activity, error) {
	f.query = q
	return []*types.Activity{{Title: "Réunion"}}, nil
}

func (f *fakeActivities) Get(_ dbctx.Context, id uuid.UUID) (*types.Activity, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &types.Activity{Title: id.String()}, nil
}

func (f *fakeActivities) Create(_ dbctx.Context, in services.ActivityInput) (*types.Activity, error) {
	f.created = in
	return &types.Activity{Title: in.Title}, nil
}

func (f *fakeActivities) Patch(_ dbctx.Context, _ uuid.UUID, p services.ActivityPatch) (*types.Activity, error) {
	f.patched = p
	return &types.Activity{}, nil
}

func (f *fakeActivities) Delete(dbctx.Context, uuid.UUID) error { return nil }

func activityRouter(svc *fakeActivities) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewActivityHandler(logger.NewNop(), svc)
	r := gin.New()
	r.GET("/activities", h.List)
	r.POST("/activities", h.Create)
	r.GET("/activities/:id", h.Get)
	r.PATCH("/activities/:id", h.Patch)
	r.DELETE("/activities/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRecordHandlerListParsesFilters(t *testing.T) {
	svc := &fakeActivities{}
	r := activityRouter(svc)
	commune := uuid.New()

	rec := do(r, http.MethodGet, "/activities?commune_id="+commune.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.query.CommuneID)
	assert.Equal(t, commune, *svc.query.CommuneID)
	assert.Nil(t, svc.query.DranefID)
	assert.Contains(t, rec.Body.String(), `"activities"`)

	rec = do(r, http.MethodGet, "/activities?dranef_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestRecordHandlerRejectsBadIDs(t *testing.T) {
	r := activityRouter(&fakeActivities{})
	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		rec := do(r, method, "/activities/not-a-uuid", "{}")
		assert.Equal(t, http.StatusBadRequest, rec.Code, method)
		assert.Equal(t, "invalid_id", errorCode(t, rec), method)
	}
	rec := do(r, http.MethodGet, "/activities/"+uuid.Nil.String(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordHandlerCreateAndPatchBodies(t *testing.T) {
	svc := &fakeActivities{}
	r := activityRouter(svc)

	rec := do(r, http.MethodPost, "/activities", `{"title":"Sensibilisation","activity_date":"2025-03-02","activity_type":"formation"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Sensibilisation", svc.created.Title)
	assert.Equal(t, 2025, svc.created.ActivityDate.Year())

	rec = do(r, http.MethodPost, "/activities", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))

	rec = do(r, http.MethodPatch, "/activities/"+uuid.NewString(), `{"commune_id":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.patched.CommuneID.Set)
	assert.Nil(t, svc.patched.CommuneID.Value)
	assert.False(t, svc.patched.Title.Set)

	rec = do(r, http.MethodDelete, "/activities/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecordHandlerMapsServiceErrors(t *testing.T) {
	svc := &fakeActivities{getErr: apierr.NotFound(errors.New("activity not found"))}
	r := activityRouter(svc)
	rec := do(r, http.MethodGet, "/activities/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))

	svc.getErr = errors.New("boom")
	rec = do(r, http.MethodGet, "/activities/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", errorCode(t, rec))
}
