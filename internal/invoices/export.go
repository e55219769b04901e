package invoices

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const xlsxSheet = "IVA"

var exportHeader = []string{"Fecha", "Concepto", "Base", "IVA %", "Cuota IVA", "Total"}

// csvFormat holds the presentation choices derived from a locale.
type csvFormat struct {
	printer    *message.Printer
	comma      rune
	dateLayout string
}

func newCSVFormat(locale string) (csvFormat, error) {
	if strings.TrimSpace(locale) == "" {
		return csvFormat{comma: ',', dateLayout: "2006-01-02"}, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return csvFormat{}, fmt.Errorf("invoices: parse locale %q: %w", locale, err)
	}
	f := csvFormat{printer: message.NewPrinter(tag), comma: ',', dateLayout: "2006-01-02"}
	if strings.Contains(f.number(decimal.RequireFromString("0.5")), ",") {
		f.comma = ';'
	}
	if base, _ := tag.Base(); base.String() == "es" {
		f.dateLayout = "02/01/2006"
	}
	return f, nil
}

func (f csvFormat) number(d decimal.Decimal) string {
	if f.printer == nil {
		return d.StringFixed(2)
	}
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2), number.NoSeparator()))
}

// WriteCSV serialises export rows. An empty locale writes plain decimals and ISO dates;
// a locale with decimal comma switches the field separator to ';'.
func WriteCSV(w io.Writer, rows []ExportRow, locale string) error {
	format, err := newCSVFormat(locale)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	writer.Comma = format.comma
	defer writer.Flush()

	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Date.Format(format.dateLayout),
			row.Concept,
			format.number(row.Base),
			format.number(row.VATRate),
			format.number(row.VATQuota),
			format.number(row.Total),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX serialises export rows into a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []ExportRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.Date.Format("2006-01-02"),
			row.Concept,
			row.Base.InexactFloat64(),
			row.VATRate.InexactFloat64(),
			row.VATQuota.InexactFloat64(),
			row.Total.InexactFloat64(),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}
