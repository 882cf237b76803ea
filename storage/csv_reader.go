package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"taxdeed-scraper/models"
)

// ReadTasks loads the auction-leads CSV into tasks. The file carries one row
// per sold parcel with County, Link, Date, Sale Amount, and Parcel ID
// columns; County (lowercased) names the profile that will process the row.
// Exports from spreadsheet tools open with a UTF-8 BOM, which is stripped.
func ReadTasks(path string) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tasks: open %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("tasks: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"County", "Parcel ID"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("tasks: %q column missing in %q (found %v)", required, path, header)
		}
	}

	cell := func(row []string, name, fallback string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return fallback
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return fallback
		}
		return v
	}

	var tasks []models.Task
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tasks: read row: %w", err)
		}

		county := strings.ToLower(cell(row, "County", ""))
		if county == "" {
			continue
		}

		tasks = append(tasks, models.Task{
			URL:       cell(row, "Link", ""),
			SaleDate:  cell(row, "Date", ""),
			SalePrice: cell(row, "Sale Amount", ""),
			ParcelID:  cell(row, "Parcel ID", models.NA),
			Profile:   county,
		})
	}

	return tasks, nil
}
