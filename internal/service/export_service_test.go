package service

import (
	"bytes"
	"context"
	"testing"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newExportFixture(t *testing.T) (ExportService, ResidentService) {
	t.Helper()

	psgc := repository.NewMemoryPSGCRepo()
	psgc.SeedSample()
	psoc := repository.NewMemoryPSOCRepo()
	psoc.SeedSample()

	residents := repository.NewMemoryResidentsRepo()
	households := repository.NewMemoryHouseholdsRepo(residents)
	resolver := geo.NewChainResolver(psgc, store.NewMemoryKV(), zap.NewNop())
	audit := store.NewMemoryAuditPublisher()

	residentSvc := NewResidentService(residents, households, psoc, psgc, resolver, audit, zap.NewNop())
	return NewExportService(residents, residentSvc, zap.NewNop()), residentSvc
}

func TestExportResidents_WorkbookRoundTrip(t *testing.T) {
	exports, residents := newExportFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}
	actor := "importer"

	input := validResidentInput()
	input.IsVoter = true
	_, err := residents.CreateResident(ctx, scope, actor, input)
	require.NoError(t, err)

	data, filename, err := exports.ExportResidents(ctx, scope, ListResidentsRequest{})
	require.NoError(t, err)
	assert.Contains(t, filename, ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(residentSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Last Name", rows[0][0])
	assert.Equal(t, "Dela Cruz", rows[1][0])
	assert.Equal(t, "Juan", rows[1][1])
}

func TestImportResidents_CreatesFromTemplateRows(t *testing.T) {
	exports, residents := newExportFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	template, err := exports.ImportTemplate()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(template))
	require.NoError(t, err)

	setRow := func(row int, values map[string]string) {
		headers, err := f.GetRows(residentSheetName)
		require.NoError(t, err)
		for col, header := range headers[0] {
			if value, ok := values[header]; ok {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(residentSheetName, cell, value))
			}
		}
	}

	setRow(2, map[string]string{
		"Last Name":     "Dela Cruz",
		"First Name":    "Juan",
		"Birthdate":     "1990-01-01",
		"Sex":           "male",
		"Civil Status":  "single",
		"Barangay Code": "042114014",
		"Voter":         "Yes",
	})
	// row 3 is missing its birthdate and must fail alone
	setRow(3, map[string]string{
		"Last Name":     "Reyes",
		"First Name":    "Maria",
		"Sex":           "female",
		"Civil Status":  "married",
		"Barangay Code": "042114014",
	})

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := exports.ImportResidents(ctx, scope, "importer", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 3, report.Errors[0].Row)

	list, err := residents.ListResidents(ctx, scope, ListResidentsRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Juan", list.Items[0].FirstName)
	assert.True(t, list.Items[0].IsVoter)
}

func TestImportResidents_RejectsNonWorkbook(t *testing.T) {
	exports, _ := newExportFixture(t)

	_, err := exports.ImportResidents(context.Background(), authz.Scope{Tier: authz.TierNational}, "importer", []byte("not a workbook"))
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}
