package report

import (
	"fmt"
	"time"
)

var months = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatDate renders an ISO date as "1 Maret 2025". Unparseable input is
// returned unchanged.
func FormatDate(iso string) string {
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%d %s %d", d.Day(), months[d.Month()-1], d.Year())
}

// FormatPeriod renders a training's date range.
func FormatPeriod(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "" || end == start:
		return FormatDate(start)
	case start == "":
		return FormatDate(end)
	}
	return FormatDate(start) + " - " + FormatDate(end)
}
