package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"taxdeed-scraper/models"
	"taxdeed-scraper/profile"
	"taxdeed-scraper/services"
	"taxdeed-scraper/utils"
)

// HistoryResult carries the rows extracted from one parcel detail page.
type HistoryResult struct {
	Rows      []models.Record
	FlipCount int
}

// ExtractHistory parses a parcel detail snapshot and emits one record per
// qualifying flip, or a single fallback record when none qualify.
//
// A row is the baseline sale, and skipped, when its parsed date and cleaned
// price both equal the task's reference. A row is a flip candidate when its
// date is strictly later than the reference; candidates whose instrument
// text matches one of the profile's baseline-instrument markers are dropped
// as administrative re-registrations rather than genuine resales.
func ExtractHistory(snapshot string, prof *profile.Profile, task models.Task, logger *utils.Logger) (*HistoryResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	ref := services.NewReference(task.SaleDate, task.SalePrice)

	// Assessment fields resolve against the whole document, once.
	pageFields := make(map[string]string, len(prof.Fields))
	for name, spec := range prof.Fields {
		pageFields[name] = resolveField(doc.Selection, spec)
	}

	base := func() models.Record {
		rec := task.Identifying()
		for name, v := range pageFields {
			rec[name] = v
		}
		return rec
	}

	result := &HistoryResult{}
	if prof.History != nil {
		doc.Find(prof.History.RowLocator).Each(func(_ int, row *goquery.Selection) {
			rawDate := resolveField(row, prof.History.Date)
			rawPrice := resolveField(row, prof.History.Price)

			rowDate := services.ParseDate(rawDate)
			rowPrice := services.CleanPrice(rawPrice)

			// The baseline sale itself.
			if rowDate.Equal(ref.Date) && rowPrice == ref.Price {
				return
			}
			// Only rows newer than the reference can be flips.
			if !rowDate.After(ref.Date) {
				return
			}

			instrument := resolveField(row, prof.History.Instrument)
			if matchesBaselineInstrument(instrument, prof.BaselineInstruments) {
				logger.Debug("[extract] %s: skipping re-registration row (%s, %s)",
					task.ParcelID, rawDate, instrument)
				return
			}

			rec := base()
			rec[models.ColFlipDate] = rawDate
			rec[models.ColFlipPrice] = rawPrice
			rec[models.ColInstrument] = instrument
			rec[models.ColQualified] = resolveField(row, prof.History.Qualified)
			rec[models.ColVacant] = resolveField(row, prof.History.Vacant)
			result.Rows = append(result.Rows, rec)
			result.FlipCount++
		})
	}

	// Every task yields at least one row; the novelty columns of the
	// fallback read as N/A through Record.Get.
	if result.FlipCount == 0 {
		result.Rows = append(result.Rows, base())
	}
	return result, nil
}

// ExtractListing parses one page of auction results into records, one per
// item block carrying the required phrase. Items without a usable identifier
// are logged and skipped; they cannot feed dedup or follow-up work.
func ExtractListing(snapshot string, prof *profile.Profile, scopeDate string, logger *utils.Logger) ([]models.Record, error) {
	lst := prof.Listing
	if lst == nil {
		return nil, fmt.Errorf("profile %s has no listing configuration", prof.Name)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	var records []models.Record
	doc.Find(lst.ItemLocator).Each(func(_ int, item *goquery.Selection) {
		if lst.RequirePhrase != "" &&
			!strings.Contains(services.CollapseSpace(item.Text()), lst.RequirePhrase) {
			return
		}

		rec := models.Record{models.ColDate: scopeDate}
		for name, spec := range lst.Fields {
			rec[name] = resolveField(item, spec)
		}

		if lst.IDField != "" {
			id := rec.Get(lst.IDField)
			if id == "" || id == models.NA {
				logger.Warn("[extract] %s: item on %s has no %s — skipping",
					prof.Name, scopeDate, lst.IDField)
				return
			}
		}

		// County sites emit relative detail links.
		if lst.LinkField != "" && lst.LinkPrefix != "" {
			if href := rec[lst.LinkField]; href != "" && href != models.NA &&
				!strings.HasPrefix(href, "http") {
				rec[lst.LinkField] = lst.LinkPrefix + href
			}
		}

		records = append(records, rec)
	})

	return records, nil
}

// resolveField resolves one field spec against a fragment. A missing match
// yields N/A, never an error: extraction is best effort per field. Matched
// but empty elements yield the empty string, which is meaningful for blank
// table cells.
func resolveField(root *goquery.Selection, spec profile.FieldSpec) string {
	if spec.CSS == "" {
		return models.NA
	}
	matches := root.Find(spec.CSS)
	if matches.Length() == 0 {
		return models.NA
	}

	read := func(s *goquery.Selection) string {
		if spec.Attr != "" {
			v, _ := s.Attr(spec.Attr)
			return services.CollapseSpace(v)
		}
		return services.CollapseSpace(s.Text())
	}

	if spec.Join {
		parts := make([]string, 0, matches.Length())
		matches.Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, read(s))
		})
		return strings.Join(parts, ", ")
	}

	pick := matches.Eq(spec.Index)
	if pick.Length() == 0 {
		return models.NA
	}
	return read(pick)
}

// matchesBaselineInstrument reports whether the instrument text marks a row
// as the same transaction class as the baseline sale. Case-insensitive
// substring match against the profile's marker list; an empty list disables
// the exclusion.
func matchesBaselineInstrument(instrument string, markers []string) bool {
	lower := strings.ToLower(instrument)
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
