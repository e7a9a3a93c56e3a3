package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-register-backend/internal/importer"
	"visitor-register-backend/internal/model"
)

var t0 = time.Date(2024, 6, 3, 1, 0, 0, 0, time.UTC)

func entry(name string, offset time.Duration, exited bool) model.Entry {
	e := model.Entry{
		ID:          name + "-id",
		Number:      "V-000001-001",
		Name:        name,
		Address:     "123 Rd",
		Purpose:     "Meeting",
		WhomToMeet:  "Bob",
		PhoneNumber: "0812",
		Status:      model.StatusEntered,
		EntryTime:   t0.Add(offset),
		CreatedAt:   t0.Add(offset),
	}
	if exited {
		exit := e.EntryTime.Add(time.Hour)
		e.Status = model.StatusExited
		e.ExitTime = &exit
	}
	return e
}

func jakarta(t *testing.T) Options {
	t.Helper()
	opts, err := NewOptions("Daftar Pengunjung", "Asia/Jakarta")
	require.NoError(t, err)
	opts.Now = func() time.Time { return t0 }
	return opts
}

func TestSortForReport(t *testing.T) {
	entries := []model.Entry{
		entry("a", 0, false),
		entry("b", time.Minute, true),
		entry("c", 2*time.Minute, false),
		entry("d", 3*time.Minute, true),
	}

	sorted := SortForReport(entries)

	var names []string
	for _, e := range sorted {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, names)
	assert.Equal(t, "a", entries[0].Name, "input must not be reordered")
}

func TestFormatTime(t *testing.T) {
	opts := jakarta(t)

	assert.Equal(t, "03/06/2024 08.00.00", FormatTime(&t0, opts.Location))
	assert.Equal(t, "-", FormatTime(nil, opts.Location))
	assert.Equal(t, "03/06/2024 01.00.00", FormatTime(&t0, nil))
}

func TestNewOptions_UnknownZone(t *testing.T) {
	opts, err := NewOptions("x", "Mars/Olympus")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, opts.Location)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Masuk", StatusLabel(model.StatusEntered))
	assert.Equal(t, "Keluar", StatusLabel(model.StatusExited))
}

func TestListPDF(t *testing.T) {
	var entries []model.Entry
	for i := 0; i < 60; i++ {
		entries = append(entries, entry(strings.Repeat("Very long visitor name ", 3), time.Duration(i)*time.Minute, i%3 == 0))
	}

	var buf bytes.Buffer
	require.NoError(t, ListPDF(&buf, entries, jakarta(t)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestListPDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ListPDF(&buf, nil, Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestQRSheetPDF(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, QRSheetPDF(&buf, nil), ErrNothingToExport)

	var entries []model.Entry
	for i := 0; i < 13; i++ {
		entries = append(entries, entry(string(rune('a'+i)), time.Duration(i)*time.Minute, false))
	}
	require.NoError(t, QRSheetPDF(&buf, entries))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("0f8fad5b-d9cb-469f-a165-70867728950e", 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = QRPNG("", 128)
	assert.Error(t, err)
}

func TestSpreadsheet_ReimportsCleanly(t *testing.T) {
	entries := []model.Entry{entry("Alice", 0, true), entry("Carol", time.Minute, false)}

	var buf bytes.Buffer
	require.NoError(t, Spreadsheet(&buf, entries, jakarta(t)))

	rows, err := importer.Read("export.xlsx", &buf)
	require.NoError(t, err)
	res, err := importer.Normalize(rows)
	require.NoError(t, err)
	require.Len(t, res.Requests, 2)
	assert.Equal(t, "Alice", res.Requests[0].Name)
	assert.Equal(t, "0812", res.Requests[0].PhoneNumber)
	assert.Equal(t, "Bob", res.Requests[1].WhomToMeet)
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, []model.Entry{entry("Alice", 0, true)}, jakarta(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Nama,Alamat,HP,Ketemu,Tujuan,Nomor,Status,Waktu Masuk,Waktu Keluar", lines[0])
	assert.Equal(t, "Alice,123 Rd,0812,Bob,Meeting,V-000001-001,Keluar,03/06/2024 08.00.00,03/06/2024 09.00.00", lines[1])

	rows, err := importer.ReadCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)
	res, err := importer.Normalize(rows)
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.Requests[0].Name)
}
