package service

import (
	"context"
	"testing"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/authz"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHouseholdInput() HouseholdInput {
	return HouseholdInput{
		Code:         "HH-2024-001",
		Name:         "Dela Cruz Residence",
		BarangayCode: "042114014",
	}
}

func TestCreateHousehold_FillsGeographicChain(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	input := validHouseholdInput()
	input.HouseholdType = "Nuclear"
	input.TenureStatus = "owned"

	created, err := fx.households.CreateHousehold(ctx, scope, fx.actorID, input)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "042114014", created.BarangayCode)
	assert.Equal(t, "042114", created.CityCode)
	assert.Equal(t, "0421", created.ProvinceCode)
	assert.Equal(t, "04", created.RegionCode)
	assert.Equal(t, "nuclear", created.HouseholdType)
	assert.Equal(t, "owned", created.TenureStatus)
	assert.Zero(t, created.MemberCount)
}

func TestCreateHousehold_DuplicateCodeIsConflict(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierNational}

	_, err := fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.NoError(t, err)

	_, err = fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
}

func TestCreateHousehold_CodeIsScopedToBarangayAndLiveRows(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierNational}

	first, err := fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.NoError(t, err)

	// the same code in another barangay is a different household
	elsewhere := validHouseholdInput()
	elsewhere.BarangayCode = "042114015"
	_, err = fx.households.CreateHousehold(ctx, scope, fx.actorID, elsewhere)
	require.NoError(t, err)

	// a soft-deleted household frees its code
	require.NoError(t, fx.households.DeleteHousehold(ctx, scope, fx.actorID, first.ID))
	_, err = fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.NoError(t, err)
}

func TestCreateHousehold_OutsideScopeIsForbidden(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114015"}

	_, err := fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
}

func TestDeleteHousehold_BlockedWhileMembersRemain(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	household, err := fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.NoError(t, err)

	input := validResidentInput()
	input.HouseholdID = household.ID
	member, err := fx.service.CreateResident(ctx, scope, fx.actorID, input)
	require.NoError(t, err)

	err = fx.households.DeleteHousehold(ctx, scope, fx.actorID, household.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	// removing the member unblocks the delete
	require.NoError(t, fx.service.DeleteResident(ctx, scope, fx.actorID, member.ID))
	require.NoError(t, fx.households.DeleteHousehold(ctx, scope, fx.actorID, household.ID))

	_, err = fx.households.GetHousehold(ctx, scope, household.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestSetHead_RequiresMembership(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	household, err := fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.NoError(t, err)

	outsider, err := fx.service.CreateResident(ctx, scope, fx.actorID, validResidentInput())
	require.NoError(t, err)

	_, err = fx.households.SetHead(ctx, scope, fx.actorID, household.ID, outsider.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	input := validResidentInput()
	input.HouseholdID = household.ID
	member, err := fx.service.CreateResident(ctx, scope, fx.actorID, input)
	require.NoError(t, err)

	updated, err := fx.households.SetHead(ctx, scope, fx.actorID, household.ID, member.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.HeadResidentID)
	assert.Equal(t, member.ID, *updated.HeadResidentID)
}

func TestListMembers_UnknownHouseholdIsNotFound(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierNational}

	_, err := fx.households.ListMembers(ctx, scope, uuid.NewString())
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestListMembers_ReturnsOnlyAssignedResidents(t *testing.T) {
	fx := newResidentFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	household, err := fx.households.CreateHousehold(ctx, scope, fx.actorID, validHouseholdInput())
	require.NoError(t, err)

	input := validResidentInput()
	input.HouseholdID = household.ID
	member, err := fx.service.CreateResident(ctx, scope, fx.actorID, input)
	require.NoError(t, err)

	// a resident without a household is not listed
	_, err = fx.service.CreateResident(ctx, scope, fx.actorID, validResidentInput())
	require.NoError(t, err)

	members, err := fx.households.ListMembers(ctx, scope, household.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, member.ID, members[0].ID)

	got, err := fx.households.GetHousehold(ctx, scope, household.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MemberCount)
}
