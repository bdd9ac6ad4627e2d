package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(files []FileResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(files)
	case "csv":
		return formatCSV(files)
	default: // text
		return formatText(files), nil
	}
}

func formatJSON(files []FileResult) (string, error) {
	batchResult := struct {
		Images []FileResult `json:"images"`
	}{Images: files}
	if batchResult.Images == nil {
		batchResult.Images = []FileResult{}
	}

	bts, err := json.MarshalIndent(batchResult, "", "  ")
	return string(bts), err
}

func formatCSV(files []FileResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)

	rows := [][]string{{"file", "format", "text", "x", "y", "width", "height", "error"}}
	for _, f := range files {
		if f.Barcode == nil {
			rows = append(rows, []string{f.Path, "", "", "0", "0", "0", "0", f.Error})
			continue
		}
		b := f.Barcode.Bounds()
		rows = append(rows, []string{
			f.Path,
			f.Barcode.Format.String(),
			f.Barcode.Text,
			strconv.Itoa(b.Min.X),
			strconv.Itoa(b.Min.Y),
			strconv.Itoa(b.Dx()),
			strconv.Itoa(b.Dy()),
			f.Error,
		})
	}

	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(files []FileResult) string {
	var output strings.Builder
	for i, f := range files {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", f.Path)
		switch {
		case f.Error != "":
			fmt.Fprintf(&output, "error: %s\n", f.Error)
		case f.Barcode == nil:
			output.WriteString("no barcode found\n")
		default:
			fmt.Fprintf(&output, "%s: %s\n", f.Barcode.Format, f.Barcode.Text)
		}
	}
	return output.String()
}
