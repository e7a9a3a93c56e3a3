// Package export renders visitor entries as PDF reports, QR code sheets,
// spreadsheets and CSV files.
package export

import (
	"errors"
	"sort"
	"time"
	_ "time/tzdata"

	"visitor-register-backend/internal/importer"
	"visitor-register-backend/internal/model"
)

// TimeLayout is the date-time layout used in every export.
const TimeLayout = "02/01/2006 15.04.05"

// ErrNothingToExport is returned when an export needs at least one entry.
var ErrNothingToExport = errors.New("nothing to export")

// Options controls how entries are rendered.
type Options struct {
	Title    string
	Location *time.Location
	Now      func() time.Time
}

// NewOptions builds Options for the named IANA timezone. An unknown zone
// falls back to UTC.
func NewOptions(title, timezone string) (Options, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Options{Title: title, Location: time.UTC, Now: time.Now}, err
	}
	return Options{Title: title, Location: loc, Now: time.Now}, nil
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Daftar Pengunjung"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// SortForReport returns a copy of entries with exited visitors first, each
// group ordered by entry time, newest first.
func SortForReport(entries []model.Entry) []model.Entry {
	out := make([]model.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].Status == model.StatusExited, out[j].Status == model.StatusExited
		if ei != ej {
			return ei
		}
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	return out
}

// StatusLabel returns the front-desk label of a status.
func StatusLabel(s model.Status) string {
	if s == model.StatusExited {
		return "Keluar"
	}
	return "Masuk"
}

// FormatTime renders t in loc, or "-" for a nil time.
func FormatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimeLayout)
}

// tabularHeader is shared by the spreadsheet and CSV exports. Its first five
// columns use the primary import aliases so an export can be re-imported.
func tabularHeader() []string {
	return []string{
		importer.Aliases.Name[0],
		importer.Aliases.Address[0],
		importer.Aliases.PhoneNumber[0],
		importer.Aliases.WhomToMeet[0],
		importer.Aliases.Purpose[0],
		"Nomor",
		"Status",
		"Waktu Masuk",
		"Waktu Keluar",
	}
}

func tabularRow(e model.Entry, loc *time.Location) []string {
	entry := e.EntryTime
	return []string{
		e.Name,
		e.Address,
		e.PhoneNumber,
		e.WhomToMeet,
		e.Purpose,
		e.Number,
		StatusLabel(e.Status),
		FormatTime(&entry, loc),
		FormatTime(e.ExitTime, loc),
	}
}
