package xlsxparser

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pega-tickets/internal/types"
)

func workbook(t *testing.T, sheets map[string][][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadTypesCells(t *testing.T) {
	buf := workbook(t, map[string][][]interface{}{
		"Tickets": {
			{"N°", "FACTURA", " IMPORTE ", "FECHA", "", "FACTURA"},
			{1, "F-001", 1234.5, 45729, "x", "dup"},
			{nil, nil, nil, nil, nil, nil},
			{"2", "00123", "n/a", "13/03/2025"},
		},
	})

	sheet, err := Read(buf, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Tickets", sheet.Name)
	assert.Equal(t, []string{"N°", "FACTURA", " IMPORTE ", "FECHA", "__EMPTY", "FACTURA_1"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []int{2, 4}, sheet.RowNumbers)

	first := sheet.Rows[0]
	assert.Equal(t, types.NumberCell(1), first.Get("N°"))
	assert.Equal(t, types.TextCell("F-001"), first.Get("FACTURA"))
	assert.Equal(t, types.NumberCell(1234.5), first.Get(" IMPORTE "))
	assert.Equal(t, types.NumberCell(45729), first.Get("FECHA"))
	assert.Equal(t, types.TextCell("dup"), first.Get("FACTURA_1"))

	second := sheet.Rows[1]
	assert.Equal(t, types.TextCell("2"), second.Get("N°"), "numeric text stays text")
	assert.Equal(t, types.TextCell("00123"), second.Get("FACTURA"))
	assert.Equal(t, types.TextCell("13/03/2025"), second.Get("FECHA"))
	assert.Equal(t, types.CellAbsent, second.Get("FACTURA_1").Kind)
}

func TestReadNamedSheetAndHeaderRow(t *testing.T) {
	buf := workbook(t, map[string][][]interface{}{
		"Resumen": {{"nothing"}},
		"Cargas": {
			{"REPORTE DE COMBUSTIBLE"},
			{"N°", "PLACA"},
			{7, "XYZ-9"},
		},
	})

	sheet, err := Read(bytes.NewReader(buf.Bytes()), Options{SheetName: "Cargas", HeaderRow: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"N°", "PLACA"}, sheet.Headers)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, 3, sheet.RowNumbers[0])
	assert.Equal(t, types.TextCell("XYZ-9"), sheet.Rows[0].Get("PLACA"))

	_, err = Read(bytes.NewReader(buf.Bytes()), Options{SheetName: "Missing"})
	assert.ErrorContains(t, err, "Missing")
}

func TestReadEmptySheet(t *testing.T) {
	buf := workbook(t, map[string][][]interface{}{"Vacia": {}})

	sheet, err := Read(buf, Options{})
	require.NoError(t, err)
	assert.Empty(t, sheet.Headers)
	assert.Empty(t, sheet.Rows)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a zip")), Options{})
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xlsx"), Options{})
	assert.Error(t, err)
}

func TestReadFileAndSheetNames(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "N°"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", 3))
	_, err := f.NewSheet("Otra")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cargas.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Otra"}, names)

	sheet, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, types.NumberCell(3), sheet.Rows[0].Get("N°"))
}
