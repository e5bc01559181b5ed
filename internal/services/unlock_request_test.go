package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/notify"
)

func TestUnlockRequestLifecycle(t *testing.T) {
	e := newEnv(t)
	svc := e.unlockRequestService()
	p := e.ownedProgram(types.StatusVerrouille)

	_, err := svc.Request(e.as(e.provincial), p.ID, " ")
	requireStatus(t, err, http.StatusBadRequest, "reason_required")
	_, err = svc.Request(e.as(e.admin), p.ID, "x")
	requireStatus(t, err, http.StatusBadRequest, "invalid_request")

	req, err := svc.Request(e.as(e.provincial), p.ID, "ligne CP erronée")
	require.NoError(t, err)
	assert.Equal(t, types.UnlockPending, req.Status)
	assert.Equal(t, "PROVINCIAL", req.RequesterScope)

	inbox := e.inbox(e.admin)
	require.Len(t, inbox, 1)
	assert.Equal(t, notify.TypeUnlockRequest, inbox[0].Type)

	_, err = svc.Request(e.as(e.adp), p.ID, "moi aussi")
	requireStatus(t, err, http.StatusConflict, "unlock_request_pending")

	_, err = svc.List(e.as(e.provincial), "")
	requireStatus(t, err, http.StatusForbidden, "")
	pending, err := svc.List(e.as(e.admin), "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := svc.Approve(e.as(e.admin), req.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, types.UnlockApproved, approved.Status)

	prog, err := e.validationService().Transition(e.as(e.admin), p.ID, "VERROUILLE", "")
	require.NoError(t, err, "the program was unlocked by the approval")
	assert.True(t, prog.Locked)

	requester := e.inbox(e.provincial)
	require.NotEmpty(t, requester)
	assert.Equal(t, NotificationUnlockRequestResolved, requester[0].Type)

	_, err = svc.Approve(e.as(e.admin), req.ID, "")
	requireStatus(t, err, http.StatusConflict, "unlock_request_resolved")

	rows, err := svc.ListByProgram(e.as(e.provincial), p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUnlockRequestRejectNeedsComment(t *testing.T) {
	e := newEnv(t)
	svc := e.unlockRequestService()
	p := e.ownedProgram(types.StatusVerrouille)
	req, err := svc.Request(e.as(e.adp), p.ID, "erreur")
	require.NoError(t, err)

	_, err = svc.Reject(e.as(e.admin), req.ID, "")
	requireStatus(t, err, http.StatusBadRequest, "reason_required")

	rejected, err := svc.Reject(e.as(e.admin), req.ID, "pas justifié")
	require.NoError(t, err)
	assert.Equal(t, types.UnlockRejected, rejected.Status)
	assert.Equal(t, "pas justifié", rejected.AdminComment)

	v, err := e.validationService().Unlock(e.as(e.admin), p.ID, "check still locked")
	require.NoError(t, err, "a rejection leaves the program locked")
	assert.Equal(t, types.StatusValideCentral, v.ValidationStatus)

	_, err = svc.Reject(e.as(e.admin), uuid.New(), "x")
	requireStatus(t, err, http.StatusNotFound, "")
}

func TestUnlockRequestNeedsLockedProgram(t *testing.T) {
	e := newEnv(t)
	p := e.ownedProgram(types.StatusValideCentral)
	_, err := e.unlockRequestService().Request(e.as(e.adp), p.ID, "pourquoi")
	requireStatus(t, err, http.StatusConflict, "invalid_transition")
}
