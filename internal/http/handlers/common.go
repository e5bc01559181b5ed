package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

func dbcOf(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// pathID parses a UUID path param and answers 400 with code when it is not one.
func pathID(c *gin.Context, param, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(param)))
	if err != nil || id == uuid.Nil {
		if err == nil {
			err = errors.New("nil id")
		}
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID reads an optional UUID filter; empty means absent.
func queryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New(key+" must be a uuid"))
		return nil, false
	}
	return &id, true
}

func queryInt(c *gin.Context, key string) (*int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New(key+" must be an integer"))
		return nil, false
	}
	return &n, true
}

// queryUUIDs reads several optional UUID filters in order, stopping at the first bad one.
func queryUUIDs(c *gin.Context, keys ...string) ([]*uuid.UUID, bool) {
	out := make([]*uuid.UUID, len(keys))
	for i, k := range keys {
		id, ok := queryUUID(c, k)
		if !ok {
			return nil, false
		}
		out[i] = id
	}
	return out, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

// fail logs unexpected errors before mapping err to its response.
func fail(c *gin.Context, log *logger.Logger, op string, err error) {
	if apierr.StatusOf(err) >= http.StatusInternalServerError {
		log.Error(op+" failed", "error", err, "path", c.FullPath())
	}
	response.RespondServiceError(c, err)
}
