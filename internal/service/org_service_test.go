package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func newOrgTestEnv() *OrgService {
	return NewOrgService(OrgDependencies{
		CompanyRepo:    newFakeCompanyRepo(),
		DepartmentRepo: newFakeDepartmentRepo(),
		TeamRepo:       newFakeTeamRepo(),
	})
}

func TestCreateCompany_DuplicateCodeRejected(t *testing.T) {
	svc := newOrgTestEnv()
	ctx := context.Background()

	company, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Acme Support", Code: "ACME"})
	require.NoError(t, err)
	assert.True(t, company.IsActive)

	_, err = svc.CreateCompany(ctx, CreateCompanyInput{Name: "Acme Clone", Code: "ACME"})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestListCompanies_OnlyActive(t *testing.T) {
	svc := newOrgTestEnv()
	ctx := context.Background()

	active, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Acme Support", Code: "ACME"})
	require.NoError(t, err)
	dormant, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Old Tenant", Code: "OLD"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateCompany(ctx, dormant.ID, UpdateCompanyInput{IsActive: &inactive})
	require.NoError(t, err)

	companies, err := svc.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, active.ID, companies[0].ID)
}

func TestCreateDepartment_InactiveCompanyRejected(t *testing.T) {
	svc := newOrgTestEnv()
	ctx := context.Background()

	company, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Acme Support", Code: "ACME"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateCompany(ctx, company.ID, UpdateCompanyInput{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.CreateDepartment(ctx, CreateDepartmentInput{CompanyID: company.ID, Name: "Billing"})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestCreateTeam_UnderDepartment(t *testing.T) {
	svc := newOrgTestEnv()
	ctx := context.Background()

	company, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Acme Support", Code: "ACME"})
	require.NoError(t, err)
	dept, err := svc.CreateDepartment(ctx, CreateDepartmentInput{CompanyID: company.ID, Name: "Billing"})
	require.NoError(t, err)

	team, err := svc.CreateTeam(ctx, CreateTeamInput{DepartmentID: dept.ID, Name: "Refunds"})
	require.NoError(t, err)
	assert.Equal(t, dept.ID, team.DepartmentID)
	assert.True(t, team.IsActive)

	teams, err := svc.ListTeams(ctx, dept.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Refunds", teams[0].Name)
}

func TestCreateTeam_UnknownDepartment(t *testing.T) {
	svc := newOrgTestEnv()

	_, err := svc.CreateTeam(context.Background(), CreateTeamInput{DepartmentID: "missing", Name: "Refunds"})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestDeactivatedDepartment_HiddenFromListing(t *testing.T) {
	svc := newOrgTestEnv()
	ctx := context.Background()

	company, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Acme Support", Code: "ACME"})
	require.NoError(t, err)
	dept, err := svc.CreateDepartment(ctx, CreateDepartmentInput{CompanyID: company.ID, Name: "Billing"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.UpdateDepartment(ctx, dept.ID, UpdateDepartmentInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	departments, err := svc.ListDepartments(ctx, company.ID)
	require.NoError(t, err)
	assert.Empty(t, departments)

	_, err = svc.CreateTeam(ctx, CreateTeamInput{DepartmentID: dept.ID, Name: "Refunds"})
	require.Error(t, err)
}
