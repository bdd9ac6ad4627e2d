package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
)

func newPDFCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf [flags] FILE...",
		Short: "Decode barcodes from images embedded in PDF files",
		Long: `Extract the images embedded in PDF pages and decode one barcode from
each of them. Works with scanned documents and generated labels that embed
the code as an image.

Examples:
  barscan pdf shipment.pdf
  barscan pdf --pages 1-3,5 --format json shipment.pdf
  barscan pdf --password secret protected.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			formats, opts, err := readerSettings(cmd, cfg)
			if err != nil {
				return err
			}
			format, outputFile, err := outputSettings(cmd, cfg)
			if err != nil {
				return err
			}

			pages := cfg.PDF.Pages
			if cmd.Flags().Changed("pages") {
				pages, _ = cmd.Flags().GetString("pages")
			}
			if _, err := pdf.ParsePageRange(pages); err != nil {
				return fmt.Errorf("invalid page range %q: %w", pages, err)
			}

			scanOpts := pdf.ScanOptions{
				PageRange:  pages,
				CropWidth:  cfg.Reader.CropWidth,
				CropHeight: cfg.Reader.CropHeight,
			}
			userPassword, _ := cmd.Flags().GetString("password")
			ownerPassword, _ := cmd.Flags().GetString("owner-password")
			if userPassword != "" || ownerPassword != "" {
				scanOpts.Credentials = &pdf.PasswordCredentials{UserPassword: userPassword, OwnerPassword: ownerPassword}
			}

			pool, err := barcode.NewReaderPool(1, formats, opts)
			if err != nil {
				return fmt.Errorf("failed to create reader pool: %w", err)
			}
			defer func() { _ = pool.Close() }()

			scanner := pdf.NewScanner(pool)
			docs := make([]*pdf.DocumentResult, 0, len(args))
			for _, file := range args {
				doc, err := scanner.Scan(cmd.Context(), file, scanOpts)
				if err != nil {
					if pdf.IsPasswordError(err) {
						return fmt.Errorf("%s is password protected, use --password: %w", file, err)
					}
					return fmt.Errorf("failed to scan %s: %w", file, err)
				}
				docs = append(docs, doc)
			}

			return writePDFResults(cmd.OutOrStdout(), docs, format, outputFile)
		},
	}

	addReaderFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().String("pages", "", "page range to scan (e.g. '1-5', '1,3,5'); default all pages")
	cmd.Flags().String("password", "", "user password for encrypted PDFs")
	cmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
	return cmd
}

func writePDFResults(w io.Writer, docs []*pdf.DocumentResult, format, outputFile string) error {
	var out string
	switch format {
	case "json":
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		out = string(data) + "\n"
	case "csv":
		var err error
		if out, err = formatPDFCSV(docs); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
	default:
		out = formatPDFText(docs)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		return nil
	}
	_, err := io.WriteString(w, out)
	return err
}

func formatPDFText(docs []*pdf.DocumentResult) string {
	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "File: %s\n", doc.Filename)
		fmt.Fprintf(&b, "Total Pages: %d\n", doc.TotalPages)
		fmt.Fprintf(&b, "Processing Time: %dms\n", doc.Processing.TotalTimeMs)
		found := doc.Barcodes()
		if len(found) == 0 {
			b.WriteString("no barcode found\n")
		}
		for _, pb := range found {
			fmt.Fprintf(&b, "page %d image %d: %s: %s\n", pb.PageNumber, pb.ImageIndex, pb.Result.Format, pb.Result.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatPDFCSV(docs []*pdf.DocumentResult) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	records := [][]string{{"file", "page", "image", "format", "text", "error"}}
	for _, doc := range docs {
		for _, page := range doc.Pages {
			for _, img := range page.Images {
				rec := []string{doc.Filename, strconv.Itoa(page.PageNumber), strconv.Itoa(img.ImageIndex), "", "", img.Error}
				if img.Barcode != nil {
					rec[3] = img.Barcode.Format.String()
					rec[4] = img.Barcode.Text
				}
				records = append(records, rec)
			}
		}
	}
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return b.String(), nil
}
