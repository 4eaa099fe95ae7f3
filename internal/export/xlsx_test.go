package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MaximValov/spc-inventory/internal/export"
	"github.com/MaximValov/spc-inventory/internal/models"
)

func TestWriteSpecimensXLSX(t *testing.T) {
	updated := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	specimens := []models.Specimen{
		{ID: 1, Status: models.StatusTested, TestName: "Tensile-1", Dogovor: "C-100", Location: "илз", Amount: 2, StatusUpdateTime: updated},
		{ID: 2, Status: models.StatusNotStarted, TestName: "Bend-2", Notes: "новый"},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteSpecimensXLSX(&buf, specimens))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{export.SheetName}, f.GetSheetList())

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.SpecimenHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "✅ испытано", rows[1][1])
	assert.Equal(t, "Tensile-1", rows[1][2])
	assert.Equal(t, "2", rows[1][5])
	assert.Equal(t, "2025-03-01 10:30:00", rows[1][7])
	assert.Equal(t, "🟠 не начато", rows[2][1])
	assert.Equal(t, "новый", rows[2][6])
}

func TestWriteSpecimensXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteSpecimensXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, export.SpecimenHeader, rows[0])
}
