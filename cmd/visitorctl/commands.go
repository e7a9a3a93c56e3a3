package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"visitor-register-backend/internal/export"
	"visitor-register-backend/internal/importer"
	"visitor-register-backend/internal/model"
)

type connectFunc func() (*app, error)

type importOptions struct {
	input  string
	apply  bool
	qrOut  string
	format string
}

func newImportCmd(connect connectFunc) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import visitors from a CSV, XLSX or JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, connect, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "File to import (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write the entries (default is dry-run)")
	cmd.Flags().StringVar(&opts.qrOut, "qr-out", "", "Also write a QR code sheet PDF for the imported entries")
	cmd.Flags().StringVar(&opts.format, "format", "", "Input format when the extension is missing: csv, xlsx or json")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runImport(cmd *cobra.Command, connect connectFunc, opts importOptions) error {
	f, err := os.Open(opts.input)
	if err != nil {
		return err
	}
	defer f.Close()

	name := opts.input
	if opts.format != "" {
		name = "input." + strings.TrimPrefix(opts.format, ".")
	}
	rows, err := importer.Read(name, f)
	if err != nil {
		return err
	}
	res, err := importer.Normalize(rows)
	if err != nil {
		return fmt.Errorf("%w (%d rows skipped)", err, res.Skipped)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d rows accepted, %d skipped\n", len(res.Requests), res.Skipped)
	if !opts.apply {
		fmt.Fprintln(out, "dry-run: pass --apply to write the entries")
		return nil
	}

	a, err := connect()
	if err != nil {
		return err
	}
	entries, err := a.ctrl.RegisterMany(cmd.Context(), res.Requests)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\t%s\n", e.Number, e.ID, e.Name)
	}

	if opts.qrOut != "" {
		if err := writeFile(opts.qrOut, func(w io.Writer) error { return export.QRSheetPDF(w, entries) }); err != nil {
			return err
		}
		fmt.Fprintf(out, "QR sheet written to %s\n", opts.qrOut)
	}
	return nil
}

type exportOptions struct {
	output string
	filter string
}

func newExportCmd(connect connectFunc) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export visitors as PDF, XLSX or CSV (chosen by the output extension)",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := model.ParseFilter(opts.filter)
			if err != nil {
				return err
			}
			a, err := connect()
			if err != nil {
				return err
			}
			entries, err := a.ctrl.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			render, err := exporterFor(opts.output, a.exportOptions())
			if err != nil {
				return err
			}
			if err := writeFile(opts.output, func(w io.Writer) error { return render(w, entries) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries written to %s\n", len(entries), opts.output)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Output file: .pdf, .xlsx or .csv (required)")
	cmd.Flags().StringVar(&opts.filter, "filter", "all", "Entries to export: all, entered or exited")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func exporterFor(path string, opts export.Options) (func(io.Writer, []model.Entry) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return func(w io.Writer, e []model.Entry) error { return export.ListPDF(w, e, opts) }, nil
	case ".xlsx":
		return func(w io.Writer, e []model.Entry) error { return export.Spreadsheet(w, e, opts) }, nil
	case ".csv":
		return func(w io.Writer, e []model.Entry) error { return export.CSV(w, e, opts) }, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", filepath.Ext(path))
}

func newQRCmd(connect connectFunc) *cobra.Command {
	var output string
	var size int

	cmd := &cobra.Command{
		Use:   "qr <entry-id>...",
		Short: "Write QR codes for entries: a PNG for one id, a PDF sheet for several",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect()
			if err != nil {
				return err
			}
			entries := make([]model.Entry, 0, len(args))
			for _, id := range args {
				e, err := a.ctrl.Get(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				entries = append(entries, *e)
			}

			if strings.EqualFold(filepath.Ext(output), ".png") {
				if len(entries) != 1 {
					return fmt.Errorf("a PNG holds exactly one code, got %d ids", len(entries))
				}
				png, err := export.QRPNG(entries[0].ID, size)
				if err != nil {
					return err
				}
				return os.WriteFile(output, png, 0o644)
			}
			return writeFile(output, func(w io.Writer) error { return export.QRSheetPDF(w, entries) })
		},
	}

	cmd.Flags().StringVar(&output, "output", "qrcodes.pdf", "Output file (.png or .pdf)")
	cmd.Flags().IntVar(&size, "size", 256, "PNG size in pixels")

	return cmd
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
