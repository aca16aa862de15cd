// Package export renders catalog images for spreadsheets and the terminal.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pbaille/gallery/internal/domain"
)

// TagNamer resolves tag ids to display names.
type TagNamer interface {
	TagName(id string) string
}

// SheetName is the worksheet holding the image rows.
const SheetName = "Images"

// Header lists the spreadsheet columns.
var Header = []string{"Name", "Tags", "Starred", "Annotations", "Uploaded", "URL"}

var columnWidths = []float64{30, 40, 10, 14, 22, 50}

// TagNames joins the display names of an image's tags.
func TagNames(img domain.Image, tags TagNamer) string {
	names := make([]string, len(img.Tags))
	for i, id := range img.Tags {
		names[i] = tags.TagName(id)
	}
	return strings.Join(names, ", ")
}

// row returns the cell values of one image. Data URIs are not exported.
func row(img domain.Image, tags TagNamer) []any {
	url := img.URL
	if strings.HasPrefix(url, "data:") {
		url = ""
	}
	starred := "No"
	if img.IsStarred {
		starred = "Yes"
	}
	return []any{
		img.Name,
		TagNames(img, tags),
		starred,
		len(img.Annotations),
		img.UploadDate.Format(time.DateTime),
		url,
	}
}

// XLSX builds a workbook with one row per image, in the given order.
func XLSX(images []domain.Image, tags TagNamer) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// reuse the default sheet
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, img := range images {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row(img, tags)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX streams the workbook to w.
func WriteXLSX(w io.Writer, images []domain.Image, tags TagNamer) error {
	data, err := XLSX(images, tags)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
