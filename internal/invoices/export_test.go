package invoices

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []ExportRow {
	return []ExportRow{{
		Date:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Concept:  "Ascensor",
		Base:     decimal.RequireFromString("826.45"),
		VATRate:  decimal.NewFromInt(21),
		VATQuota: decimal.RequireFromString("173.55"),
		Total:    decimal.NewFromInt(1000),
	}}
}

func TestWriteCSVDefaultLocale(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows(), ""))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Fecha,Concepto,Base,IVA %,Cuota IVA,Total", lines[0])
	require.Equal(t, "2026-03-10,Ascensor,826.45,21.00,173.55,1000.00", lines[1])
}

func TestWriteCSVSpanishLocale(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows(), "es"))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Fecha;Concepto;Base;IVA %;Cuota IVA;Total"))
	require.Contains(t, out, "10/03/2026;Ascensor;")
	require.Contains(t, out, "826,45")
	require.Contains(t, out, "173,55")
}

func TestWriteCSVRejectsUnknownLocale(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, WriteCSV(&buf, sampleRows(), "not a locale!!"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, exportHeader, rows[0])
	require.Equal(t, "2026-03-10", rows[1][0])
	require.Equal(t, "Ascensor", rows[1][1])
}
