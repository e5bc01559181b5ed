package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
)

func serve(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondServiceError(c, err)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestRespondServiceErrorUnwrapsAPIError(t *testing.T) {
	wrapped := fmt.Errorf("patch action: %w", apierr.Locked(errors.New("program is locked")))
	status, env := serve(t, wrapped)
	assert.Equal(t, http.StatusLocked, status)
	assert.Equal(t, "locked", env.Error.Code)
	assert.Equal(t, "program is locked", env.Error.Message)
}

func TestRespondServiceErrorFillsMissingCode(t *testing.T) {
	status, env := serve(t, apierr.New(http.StatusConflict, "", errors.New("dup")))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", env.Error.Code)
}

func TestRespondServiceErrorHidesInternalErrors(t *testing.T) {
	status, env := serve(t, errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", env.Error.Code)
	assert.NotContains(t, env.Error.Message, "10.0.0.1")
}
