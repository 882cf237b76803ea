package storage

import (
	"os"
	"path/filepath"
	"testing"

	"taxdeed-scraper/models"
)

func writeTasksFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTasksMapsSpreadsheetColumns(t *testing.T) {
	// Exported sheets open with a BOM on the first header cell.
	path := writeTasksFile(t, "\uFEFFCounty,Link,Date,Sale Amount,Parcel ID\n"+
		"Duval,https://x.example/1,09/10/2025,\"$141,100.00\",P-1\n"+
		",https://x.example/2,09/11/2025,$99.00,P-2\n"+
		"Clay,https://x.example/3,09/12/2025,$88.00,\n")

	tasks, err := ReadTasks(path)
	if err != nil {
		t.Fatal(err)
	}

	// The county-less row is dropped.
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks; want 2", len(tasks))
	}

	first := tasks[0]
	if first.Profile != "duval" {
		t.Errorf("profile = %q; want lowercased county", first.Profile)
	}
	if first.URL != "https://x.example/1" || first.SaleDate != "09/10/2025" {
		t.Errorf("task = %+v", first)
	}
	if first.SalePrice != "$141,100.00" || first.ParcelID != "P-1" {
		t.Errorf("task = %+v", first)
	}

	// A blank parcel cell keeps the row but marks the ID unknown.
	if tasks[1].ParcelID != models.NA {
		t.Errorf("blank parcel = %q; want %q", tasks[1].ParcelID, models.NA)
	}
}

func TestReadTasksRequiresCountyAndParcelColumns(t *testing.T) {
	path := writeTasksFile(t, "Link,Date\nhttps://x.example/1,09/10/2025\n")
	if _, err := ReadTasks(path); err == nil {
		t.Error("expected an error for a header without County / Parcel ID")
	}
}

func TestReadTasksMissingFile(t *testing.T) {
	if _, err := ReadTasks(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected an error for a missing tasks file")
	}
}
