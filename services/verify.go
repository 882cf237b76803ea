package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"taxdeed-scraper/models"
	"taxdeed-scraper/utils"
)

// Verifier cross-checks scrape output against the task list that drove it,
// so dropped parcels surface as a report instead of a silent gap.
type Verifier struct {
	logger *utils.Logger
}

func NewVerifier(logger *utils.Logger) *Verifier {
	return &Verifier{logger: logger}
}

// CoverageReport lists the tasks whose parcel IDs never made it into any
// output file.
type CoverageReport struct {
	Total   int
	Covered int
	Missing []models.Task
}

// VerifyCoverage loads every parcel ID present in the output files and
// returns the tasks that appear in none of them. Output files that do not
// exist are warned about and skipped, so the check can run against a
// partially completed batch.
func (v *Verifier) VerifyCoverage(tasks []models.Task, outputs []string) (*CoverageReport, error) {
	processed, err := v.loadProcessedIDs(outputs)
	if err != nil {
		return nil, err
	}

	report := &CoverageReport{}
	for _, task := range tasks {
		pid := normalizePID(task.ParcelID)
		if pid == "" {
			continue
		}
		report.Total++
		if _, ok := processed[pid]; ok {
			report.Covered++
			continue
		}
		report.Missing = append(report.Missing, task)
		v.logger.Warn("[verify] MISSING parcel=%s url=%s", task.ParcelID, task.URL)
	}

	if len(report.Missing) == 0 {
		v.logger.Info("[verify] all %d records accounted for", report.Total)
	} else {
		v.logger.Warn("[verify] %d of %d records missing from output", len(report.Missing), report.Total)
	}
	return report, nil
}

// loadProcessedIDs reads the "Parcel ID" column from every output file and
// gathers the normalized values into a set.
func (v *Verifier) loadProcessedIDs(paths []string) (map[string]struct{}, error) {
	processed := make(map[string]struct{})

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				v.logger.Warn("[verify] output file not found, skipping: %s", path)
				continue
			}
			return nil, fmt.Errorf("open output %s: %w", path, err)
		}

		count, err := readPIDColumn(f, processed)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read output %s: %w", path, err)
		}
		v.logger.Info("[verify] %s: loaded %d records", path, count)
	}
	return processed, nil
}

func readPIDColumn(f *os.File, into map[string]struct{}) (int, error) {
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	header := rows[0]
	pidCol := -1
	for i, name := range header {
		if strings.TrimPrefix(name, "\uFEFF") == "Parcel ID" {
			pidCol = i
			break
		}
	}
	if pidCol < 0 {
		return 0, fmt.Errorf("no %q column in header %v", "Parcel ID", header)
	}

	count := 0
	for _, row := range rows[1:] {
		if pidCol >= len(row) {
			continue
		}
		if pid := normalizePID(row[pidCol]); pid != "" {
			into[pid] = struct{}{}
			count++
		}
	}
	return count, nil
}

// normalizePID standardizes parcel IDs for comparison. Empty cells, "N/A"
// placeholders, and stray repeated header cells all count as missing.
func normalizePID(raw string) string {
	cleaned := strings.TrimSpace(raw)
	switch strings.ToLower(cleaned) {
	case "", "n/a", "parcel id":
		return ""
	}
	return cleaned
}
