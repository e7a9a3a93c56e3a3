package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"visitor-register-backend/internal/export"
	"visitor-register-backend/internal/importer"
	"visitor-register-backend/internal/model"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV  = "text/csv; charset=utf-8"
	mimePNG  = "image/png"
)

// ImportEntries handles POST /api/entries/import with a multipart "file"
// field holding a .csv, .xlsx or .json file.
func (h *Handler) ImportEntries(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		validationFailed(c, "file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		validationFailed(c, "file")
		return
	}
	defer f.Close()

	rows, err := importer.Read(fh.Filename, f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   err.Error(),
			"code":    codeValidation,
			"details": []string{"file"},
		})
		return
	}

	res, err := importer.Normalize(rows)
	if err != nil {
		if errors.Is(err, importer.ErrNoValidRows) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "No valid rows to import",
				"code":    codeNoValidRows,
				"skipped": res.Skipped,
			})
			return
		}
		respondError(c, err)
		return
	}

	entries, err := h.ctrl.RegisterMany(c.Request.Context(), res.Requests)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveImport(len(entries), res.Skipped)
	}

	c.JSON(http.StatusCreated, gin.H{
		"imported": len(entries),
		"skipped":  res.Skipped,
		"entries":  entries,
	})
}

// entriesForExport resolves ?ids=a,b,c or ?filter=... into entries.
func (h *Handler) entriesForExport(c *gin.Context) ([]model.Entry, bool) {
	if raw := strings.TrimSpace(c.Query("ids")); raw != "" {
		var entries []model.Entry
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			entry, err := h.ctrl.Get(c.Request.Context(), id)
			if err != nil {
				respondError(c, err)
				return nil, false
			}
			entries = append(entries, *entry)
		}
		return entries, true
	}

	filter, err := model.ParseFilter(c.Query("filter"))
	if err != nil {
		validationFailed(c, "filter")
		return nil, false
	}
	entries, err := h.ctrl.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return entries, true
}

func attachment(c *gin.Context, base, ext, mime string, body []byte) {
	filename := fmt.Sprintf("%s-%s%s", base, time.Now().Format("20060102-150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, mime, body)
}

func (h *Handler) renderExport(c *gin.Context, base, ext, mime string, render func(*bytes.Buffer, []model.Entry) error) {
	entries, ok := h.entriesForExport(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render(&buf, entries); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to export", "code": codeValidation})
			return
		}
		respondError(c, err)
		return
	}
	attachment(c, base, ext, mime, buf.Bytes())
}

// ExportPDF handles GET /api/export/entries.pdf.
func (h *Handler) ExportPDF(c *gin.Context) {
	h.renderExport(c, "daftar-pengunjung", ".pdf", mimePDF, func(buf *bytes.Buffer, entries []model.Entry) error {
		return export.ListPDF(buf, entries, h.export)
	})
}

// ExportXLSX handles GET /api/export/entries.xlsx.
func (h *Handler) ExportXLSX(c *gin.Context) {
	h.renderExport(c, "daftar-pengunjung", ".xlsx", mimeXLSX, func(buf *bytes.Buffer, entries []model.Entry) error {
		return export.Spreadsheet(buf, entries, h.export)
	})
}

// ExportCSV handles GET /api/export/entries.csv.
func (h *Handler) ExportCSV(c *gin.Context) {
	h.renderExport(c, "daftar-pengunjung", ".csv", mimeCSV, func(buf *bytes.Buffer, entries []model.Entry) error {
		return export.CSV(buf, entries, h.export)
	})
}

// ExportQRSheet handles GET /api/export/qrcodes.pdf.
func (h *Handler) ExportQRSheet(c *gin.Context) {
	h.renderExport(c, "qrcodes", ".pdf", mimePDF, func(buf *bytes.Buffer, entries []model.Entry) error {
		return export.QRSheetPDF(buf, entries)
	})
}

// EntryQR handles GET /api/entries/:id/qr.png?size=256.
func (h *Handler) EntryQR(c *gin.Context) {
	entry, err := h.ctrl.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	size := 256
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > 2048 {
			validationFailed(c, "size")
			return
		}
		size = n
	}

	png, err := export.QRPNG(entry.ID, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, mimePNG, png)
}
