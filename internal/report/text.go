// Package report renders reconciliation results for operators: plain text for the
// terminal and an xlsx workbook for the accounts office.
package report

import (
	"fmt"
	"io"
	"sort"

	"frontdesk/internal/models"
	"frontdesk/internal/service"

	"github.com/shopspring/decimal"
)

func money(currency string, d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}

func sortedMismatches(m map[int64]models.StatusMismatch) []models.StatusMismatch {
	out := make([]models.StatusMismatch, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out
}

func dryRunNote(dryRun bool) string {
	if dryRun {
		return " (dry run, nothing saved)"
	}
	return ""
}

// WriteText prints one line per finding followed by a summary line per pass.
func WriteText(w io.Writer, r *service.ReconcileReport, currency string) error {
	pw := &printer{w: w}

	if r.Backup != "" {
		pw.printf("backup: %s\n", r.Backup)
	}

	if r.Statuses != nil {
		for _, m := range sortedMismatches(r.Statuses.Mismatches) {
			pw.printf("booking %d: %s -> %s (grand %s, paid %s, outstanding %s)\n",
				m.BookingID, m.Current, m.Expected,
				money(currency, m.Summary.GrandTotal),
				money(currency, m.Summary.TotalPaid),
				money(currency, m.Summary.Outstanding))
		}
		for _, e := range r.Statuses.Errors {
			pw.printf("error: %s\n", e)
		}
		pw.printf("payment statuses: %d mismatched, %d updated, %d errors%s\n",
			len(r.Statuses.Mismatches), r.Statuses.Updated, len(r.Statuses.Errors), dryRunNote(r.DryRun))
	}

	if r.Charges != nil {
		for _, c := range r.Charges {
			pw.printf("booking %d: room charge %s -> %s (%d nights x %s)\n",
				c.BookingID, money(currency, c.Stored), money(currency, c.Computed), c.Nights, money(currency, c.Rate))
		}
		pw.printf("room charges: %d corrected%s\n", len(r.Charges), dryRunNote(r.DryRun))
	}

	if r.Rooms != nil {
		for _, d := range r.Rooms {
			pw.printf("room %s: available %t -> %t\n", d.RoomNumber, d.Cached, d.Expected)
		}
		pw.printf("room availability: %d corrected%s\n", len(r.Rooms), dryRunNote(r.DryRun))
	}

	return pw.err
}

// WriteSummary prints one booking's financial view.
func WriteSummary(w io.Writer, sum models.Summary, currency string) error {
	pw := &printer{w: w}
	pw.printf("booking %d: %s\n", sum.BookingID, sum.PaymentStatus)
	pw.printf("  room charge  %s\n", money(currency, sum.RoomCharge))
	pw.printf("  meals        %s\n", money(currency, sum.MealTotal))
	pw.printf("  grand total  %s\n", money(currency, sum.GrandTotal))
	pw.printf("  paid         %s (%s%%)\n", money(currency, sum.TotalPaid), sum.PaymentPercentage.StringFixed(2))
	pw.printf("  outstanding  %s\n", money(currency, sum.Outstanding))
	return pw.err
}

// printer keeps the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
