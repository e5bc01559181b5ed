package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/pointers"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

func (e *testEnv) userAdminService() UserAdminService {
	return NewUserAdminService(e.db, e.log, e.tx, repos.NewUserRepo(e.db, e.log), e.territory)
}

func (e *testEnv) adpAgentService() AdpAgentService {
	return NewAdpAgentService(e.db, e.log, e.tx, repos.NewAdpAgentRepo(e.db, e.log), e.territory)
}

func TestUserAdminCreateAndPatch(t *testing.T) {
	e := newEnv(t)
	svc := e.userAdminService()
	dp := e.terr.Dpanefs[1].ID

	in := UserInput{Email: " Chef.DP@anef.ma ", Password: "s3cret-pass", FullName: "Chef DPANEF", RoleLabel: "DPANEF", DpanefID: &dp, Roles: []string{"adp", "adp"}}
	_, err := svc.Create(e.as(e.national), in)
	requireStatus(t, err, http.StatusForbidden, "forbidden")

	short := in
	short.Password = "123"
	_, err = svc.Create(e.as(e.admin), short)
	requireStatus(t, err, http.StatusBadRequest, "invalid_request")

	u, err := svc.Create(e.as(e.admin), in)
	require.NoError(t, err)
	assert.Equal(t, "chef.dp@anef.ma", u.Email)
	require.NotNil(t, u.DranefID)
	assert.Equal(t, e.terr.Dranefs[1].ID, *u.DranefID)
	assert.Len(t, u.Roles, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
	assert.Equal(t, rbac.ScopeProvincial, u.Scope().Level)

	_, err = svc.Create(e.as(e.admin), in)
	requireStatus(t, err, http.StatusConflict, "email_taken")

	bad := in
	bad.Email = "x@anef.ma"
	bad.CommuneIDs = []uuid.UUID{uuid.New()}
	_, err = svc.Create(e.as(e.admin), bad)
	requireStatus(t, err, http.StatusBadRequest, "invalid_commune")

	dp0 := e.terr.Dpanefs[0].ID
	patched, err := svc.Patch(e.as(e.admin), u.ID, UserPatch{
		DpanefID: OptionalUUID{Set: true, Value: &dp0},
		IsActive: OptionalBool{Set: true, Value: pointers.Ptr(false)},
		Roles:    &[]string{"admin"},
	})
	require.NoError(t, err)
	assert.Equal(t, e.terr.Dranefs[0].ID, *patched.DranefID)
	assert.False(t, patched.IsActive)
	assert.Equal(t, rbac.ScopeAdmin, patched.Scope().Level)

	_, err = svc.Patch(e.as(e.admin), e.admin.ID, UserPatch{IsActive: OptionalBool{Set: true, Value: pointers.Ptr(false)}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_request")

	_, err = svc.Patch(e.as(e.admin), uuid.New(), UserPatch{})
	requireStatus(t, err, http.StatusNotFound, "not_found")

	rows, err := svc.List(e.as(e.national))
	require.NoError(t, err)
	assert.Len(t, rows, 7)
	_, err = svc.List(e.as(e.regional))
	requireStatus(t, err, http.StatusForbidden, "forbidden")
}

func TestAdpAgentScope(t *testing.T) {
	e := newEnv(t)
	svc := e.adpAgentService()
	near := e.terr.Communes[0].ID
	far := e.terr.Communes[1].ID

	_, err := svc.Create(e.as(e.adp), AdpAgentInput{Matricule: "A-1", FullName: "Agent", CommuneIDs: []uuid.UUID{near}})
	requireStatus(t, err, http.StatusForbidden, "forbidden")

	_, err = svc.Create(e.as(e.provincial), AdpAgentInput{Matricule: "A-1", FullName: "Agent", CommuneIDs: []uuid.UUID{far}})
	requireStatus(t, err, http.StatusForbidden, "out_of_scope")

	a, err := svc.Create(e.as(e.provincial), AdpAgentInput{Matricule: "A-1", FullName: "Agent Rif", CommuneIDs: []uuid.UUID{near}, UserID: &e.adp.ID})
	require.NoError(t, err)
	assert.Equal(t, e.terr.Dpanefs[0].ID, *a.DpanefID)
	assert.Equal(t, e.terr.Dranefs[0].ID, *a.DranefID)
	assert.True(t, a.IsActive())

	_, err = svc.Create(e.as(e.admin), AdpAgentInput{Matricule: "a-1", FullName: "Dup", CommuneIDs: []uuid.UUID{far}})
	requireStatus(t, err, http.StatusConflict, "matricule_taken")

	_, err = svc.Create(e.as(e.admin), AdpAgentInput{Matricule: "A-2", FullName: "Agent Atlas", CommuneIDs: []uuid.UUID{far}})
	require.NoError(t, err)

	mine, err := svc.List(e.as(e.adp))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	all, err := svc.List(e.as(e.national))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Patch(e.as(e.provincial), a.ID, AdpAgentPatch{Status: OptionalString{Set: true, Value: pointers.String("Suspendu")}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_status")

	moved, err := svc.Patch(e.as(e.admin), a.ID, AdpAgentPatch{CommuneIDs: &[]uuid.UUID{far}, Status: OptionalString{Set: true, Value: pointers.String("Inactif")}})
	require.NoError(t, err)
	assert.Equal(t, e.terr.Dpanefs[1].ID, *moved.DpanefID)
	assert.False(t, moved.IsActive())

	err = svc.Delete(e.as(e.provincial), a.ID)
	requireStatus(t, err, http.StatusNotFound, "not_found")
	require.NoError(t, svc.Delete(e.as(e.admin), a.ID))
}

func TestAdpAgentVisibleFromEveryAssignedCommune(t *testing.T) {
	e := newEnv(t)
	svc := e.adpAgentService()
	near := e.terr.Communes[0].ID
	far := e.terr.Communes[1].ID

	a, err := svc.Create(e.as(e.admin), AdpAgentInput{Matricule: "A-7", FullName: "Agent Mixte", CommuneIDs: []uuid.UUID{near, far}})
	require.NoError(t, err)
	assert.Equal(t, e.terr.Dpanefs[0].ID, *a.DpanefID)

	for _, u := range []*types.User{e.adp, e.otherAdp} {
		rows, err := svc.List(e.as(u))
		require.NoError(t, err)
		require.Len(t, rows, 1, u.Email)
		assert.Equal(t, a.ID, rows[0].ID)
	}
}
