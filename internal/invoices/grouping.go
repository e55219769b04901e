package invoices

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
)

var hundred = decimal.NewFromInt(100)

// StripPropertySuffix removes the trailing balanced "(...)" block, recovering the shared
// invoice concept from a distributed line description. Nested parentheses inside the
// block are removed with it; an unbalanced tail leaves the description unchanged.
func StripPropertySuffix(description string) string {
	trimmed := strings.TrimSpace(description)
	if !strings.HasSuffix(trimmed, ")") {
		return trimmed
	}
	depth := 0
	for i := len(trimmed) - 1; i >= 0; i-- {
		switch trimmed[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return strings.TrimSpace(trimmed[:i])
			}
		}
	}
	return trimmed
}

// invoiceConcept returns the concept a line is grouped under. Distributed lines carry the
// caller's description verbatim in Concept; other lines fall back to the description.
func invoiceConcept(line movements.Movement) string {
	if line.BatchID != nil && line.Concept != "" {
		return line.Concept
	}
	return StripPropertySuffix(line.Description)
}

// GroupByConcept groups lines by full-string equality of the raw concept. Unrelated lines
// with identical free text collapse into the same group.
func GroupByConcept(lines []movements.Movement) []ProviderGroup {
	index := map[string]int{}
	var groups []ProviderGroup
	for _, line := range lines {
		pos, ok := index[line.Concept]
		if !ok {
			pos = len(groups)
			index[line.Concept] = pos
			groups = append(groups, ProviderGroup{Key: line.Concept, Date: line.Date, Total: decimal.Zero})
		}
		g := &groups[pos]
		g.Total = g.Total.Add(line.Amount)
		g.IDs = append(g.IDs, line.ID)
		if line.Date.After(g.Date) {
			g.Date = line.Date
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if !groups[i].Date.Equal(groups[j].Date) {
			return groups[i].Date.After(groups[j].Date)
		}
		return groups[i].Key < groups[j].Key
	})
	if groups == nil {
		groups = []ProviderGroup{}
	}
	return groups
}

// GroupByInvoice groups lines by (day, description without property suffix) and derives
// VAT figures with defaultRate when the stored base was never populated. Transfer legs
// are not invoices and are skipped.
func GroupByInvoice(lines []movements.Movement, defaultRate decimal.Decimal) []InvoiceGroup {
	index := map[string]int{}
	var groups []InvoiceGroup
	for _, line := range lines {
		if line.IsTransfer() {
			continue
		}
		day := truncateDay(line.Date)
		concept := invoiceConcept(line)
		key := day.Format("2006-01-02") + "|" + concept
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, InvoiceGroup{
				Key:        key,
				Date:       day,
				Concept:    concept,
				SupplierID: line.SupplierID,
				Total:      decimal.Zero,
				Base:       decimal.Zero,
				VATRate:    decimal.Zero,
				VATQuota:   decimal.Zero,
			})
		}
		g := &groups[pos]
		g.Total = g.Total.Add(line.Amount)
		g.Base = g.Base.Add(line.Base)
		g.VATQuota = g.VATQuota.Add(line.VATQuota)
		if g.VATRate.IsZero() && !line.VATRate.IsZero() {
			g.VATRate = line.VATRate
		}
		g.LineIDs = append(g.LineIDs, line.ID)
	}
	for i := range groups {
		deriveVAT(&groups[i], defaultRate)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if !groups[i].Date.Equal(groups[j].Date) {
			return groups[i].Date.Before(groups[j].Date)
		}
		return groups[i].Concept < groups[j].Concept
	})
	if groups == nil {
		groups = []InvoiceGroup{}
	}
	return groups
}

// deriveVAT back-computes base and quota from the total. It only applies to positive totals
// whose stored base is zero or equal to the total, and never to a rate outside [0, 100).
func deriveVAT(g *InvoiceGroup, defaultRate decimal.Decimal) {
	if !g.Total.IsPositive() {
		return
	}
	if !g.Base.IsZero() && !g.Base.Equal(g.Total) {
		return
	}
	rate := g.VATRate
	if rate.IsZero() {
		rate = defaultRate
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(hundred) {
		return
	}
	divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
	g.VATRate = rate
	g.Base = g.Total.Div(divisor).Round(2)
	g.VATQuota = g.Total.Sub(g.Base)
	g.VATDerived = true
}

// ExportRows projects invoice groups to flat rows.
func ExportRows(groups []InvoiceGroup) []ExportRow {
	rows := make([]ExportRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, ExportRow{
			Date:     g.Date,
			Concept:  g.Concept,
			Base:     g.Base,
			VATRate:  g.VATRate,
			VATQuota: g.VATQuota,
			Total:    g.Total,
		})
	}
	return rows
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
