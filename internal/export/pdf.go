package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"visitor-register-backend/internal/model"
)

type column struct {
	title string
	width float64
	value func(i int, e model.Entry, o Options) string
}

// Widths add up to the printable width of landscape A4 with 10mm margins.
var listColumns = []column{
	{"No", 10, func(i int, _ model.Entry, _ Options) string { return strconv.Itoa(i + 1) }},
	{"Nama", 38, func(_ int, e model.Entry, _ Options) string { return e.Name }},
	{"HP", 28, func(_ int, e model.Entry, _ Options) string { return e.PhoneNumber }},
	{"Alamat/Perusahaan", 46, func(_ int, e model.Entry, _ Options) string { return e.Address }},
	{"Ketemu", 30, func(_ int, e model.Entry, _ Options) string { return e.WhomToMeet }},
	{"Tujuan", 36, func(_ int, e model.Entry, _ Options) string { return e.Purpose }},
	{"Status", 17, func(_ int, e model.Entry, _ Options) string { return StatusLabel(e.Status) }},
	{"Waktu Masuk", 36, func(_ int, e model.Entry, o Options) string {
		t := e.EntryTime
		return FormatTime(&t, o.Location)
	}},
	{"Waktu Keluar", 36, func(_ int, e model.Entry, o Options) string { return FormatTime(e.ExitTime, o.Location) }},
}

// ListPDF writes the visitor list report. Entries are sorted with
// SortForReport before rendering.
func ListPDF(w io.Writer, entries []model.Entry, opts Options) error {
	opts = opts.withDefaults()
	sorted := SortForReport(entries)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range listColumns {
			pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Halaman %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(opts.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	now := opts.Now()
	pdf.CellFormat(0, 5, "Tanggal: "+FormatTime(&now, opts.Location), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Total pengunjung: %d", len(sorted)), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	for i, e := range sorted {
		for _, col := range listColumns {
			text := fit(pdf, tr(col.value(i, e, opts)), col.width-2)
			pdf.CellFormat(col.width, 6, text, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf, w)
}

// QRSheetPDF writes printable QR codes, 3 columns by 4 rows per A4 page.
// Each code encodes the entry id; the number and name are printed below it.
func QRSheetPDF(w io.Writer, entries []model.Entry) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}

	const (
		cols, rows     = 3, 4
		margin         = 10.0
		cellW          = (210 - 2*margin) / cols
		cellH          = (297 - 2*margin) / rows
		qrSize         = 48.0
		perPage        = cols * rows
		qrPixels       = 256
		labelLineWidth = cellW - 4
	)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	imgOpts := fpdf.ImageOptions{ImageType: "PNG"}

	for i, e := range entries {
		if i%perPage == 0 {
			pdf.AddPage()
		}
		slot := i % perPage
		x := margin + float64(slot%cols)*cellW
		y := margin + float64(slot/cols)*cellH

		png, err := QRPNG(e.ID, qrPixels)
		if err != nil {
			return err
		}
		name := "qr-" + e.ID
		pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(png))
		pdf.ImageOptions(name, x+(cellW-qrSize)/2, y+4, qrSize, qrSize, false, imgOpts, 0, "")

		pdf.SetXY(x+2, y+qrSize+6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelLineWidth, 5, fit(pdf, e.Number, labelLineWidth), "", 2, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(labelLineWidth, 5, fit(pdf, tr(e.Name), labelLineWidth), "", 0, "C", false, 0, "")
	}

	return output(pdf, w)
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// fit shortens s with an ellipsis until it fits into width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
