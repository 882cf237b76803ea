package scraper

import (
	"testing"

	"taxdeed-scraper/models"
	"taxdeed-scraper/profile"
)

func historyProfile() *profile.Profile {
	return &profile.Profile{
		Name:                "testcounty",
		BaselineInstruments: []string{"tax deed", "td"},
		Fields: map[string]profile.FieldSpec{
			"Bldg Value": {CSS: "span.bldg"},
			"Land Value": {CSS: "span.land"},
		},
		History: &profile.HistoryTable{
			RowLocator: "table#sales tr.sale",
			Date:       profile.FieldSpec{CSS: "td:nth-of-type(1)"},
			Price:      profile.FieldSpec{CSS: "td:nth-of-type(2)"},
			Instrument: profile.FieldSpec{CSS: "td:nth-of-type(3)"},
			Qualified:  profile.FieldSpec{CSS: "td:nth-of-type(4)"},
			Vacant:     profile.FieldSpec{CSS: "td:nth-of-type(5)"},
		},
	}
}

func historyTask() models.Task {
	return models.Task{
		URL:       "https://county.example/parcel/1",
		ParcelID:  "P-100",
		SaleDate:  "Wednesday September 10, 2025",
		SalePrice: "$141,100.00 ",
	}
}

const parcelPage = `<html><body>
<span class="bldg"> 95,000 </span><span class="land">30,500</span>
<table id="sales">
<tr class="sale"><td>09/10/2025</td><td>$141,100.00</td><td>Tax Deed</td><td>U</td><td>I</td></tr>
<tr class="sale"><td>11/20/2025</td><td>$210,000.00</td><td>Warranty Deed</td><td>Q</td><td>I</td></tr>
<tr class="sale"><td>12/01/2025</td><td>$1.00</td><td>TD</td><td>U</td><td>I</td></tr>
<tr class="sale"><td>03/04/2019</td><td>$88,000.00</td><td>Warranty Deed</td><td>Q</td><td>V</td></tr>
</table>
</body></html>`

func TestExtractHistoryFlipDetection(t *testing.T) {
	result, err := ExtractHistory(parcelPage, historyProfile(), historyTask(), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}

	// Baseline row skipped (same date and price as the reference), the TD
	// re-registration skipped, the 2019 sale predates the reference. Only
	// the November warranty deed is a flip.
	if result.FlipCount != 1 || len(result.Rows) != 1 {
		t.Fatalf("got %d rows / %d flips; want 1 / 1", len(result.Rows), result.FlipCount)
	}

	row := result.Rows[0]
	if row[models.ColFlipDate] != "11/20/2025" {
		t.Errorf("flip date = %q; want 11/20/2025", row[models.ColFlipDate])
	}
	if row[models.ColFlipPrice] != "$210,000.00" {
		t.Errorf("flip price = %q; want raw $210,000.00", row[models.ColFlipPrice])
	}
	if row[models.ColInstrument] != "Warranty Deed" {
		t.Errorf("instrument = %q", row[models.ColInstrument])
	}
	if row[models.ColURL] != "https://county.example/parcel/1" || row[models.ColParcelID] != "P-100" {
		t.Error("identifying columns not carried through")
	}
	if row["Bldg Value"] != "95,000" || row["Land Value"] != "30,500" {
		t.Errorf("page fields = %q / %q", row["Bldg Value"], row["Land Value"])
	}
}

func TestExtractHistoryBaselineMatchedByParsedValues(t *testing.T) {
	// The page renders the date in a different layout than the task CSV;
	// the baseline must still be recognized via parsed comparison.
	page := `<table id="sales">
<tr class="sale"><td>2025-09-10</td><td>141100.00</td><td>Tax Deed</td><td></td><td></td></tr>
</table>`

	result, err := ExtractHistory(page, historyProfile(), historyTask(), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if result.FlipCount != 0 {
		t.Errorf("baseline row counted as flip: %+v", result.Rows)
	}
}

func TestExtractHistoryFallbackRowWhenNoFlips(t *testing.T) {
	page := `<span class="bldg">95,000</span>
<table id="sales">
<tr class="sale"><td>09/10/2025</td><td>$141,100.00</td><td>Tax Deed</td><td>U</td><td>I</td></tr>
</table>`

	result, err := ExtractHistory(page, historyProfile(), historyTask(), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Rows) != 1 || result.FlipCount != 0 {
		t.Fatalf("got %d rows / %d flips; want one fallback row", len(result.Rows), result.FlipCount)
	}

	row := result.Rows[0]
	if row[models.ColParcelID] != "P-100" {
		t.Error("fallback row must carry the identifying columns")
	}
	// Novelty columns are simply absent and read as N/A.
	if got := row.Get(models.ColFlipDate); got != models.NA {
		t.Errorf("fallback flip date = %q; want %q", got, models.NA)
	}
	// The land span is missing from this page; present bldg span extracts.
	if got := row.Get("Land Value"); got != models.NA {
		t.Errorf("missing field = %q; want %q", got, models.NA)
	}
}

func TestExtractHistoryEmptyCellIsNotNA(t *testing.T) {
	page := `<table id="sales">
<tr class="sale"><td>11/20/2025</td><td>$210,000.00</td><td>Warranty Deed</td><td></td><td>I</td></tr>
</table>`

	result, err := ExtractHistory(page, historyProfile(), historyTask(), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 1 {
		t.Fatal("expected one flip row")
	}
	// The qualified cell exists but is blank: empty string, not N/A.
	if got := result.Rows[0][models.ColQualified]; got != "" {
		t.Errorf("blank cell = %q; want empty string", got)
	}
}

func TestExtractHistoryInstrumentExclusionIsCaseInsensitive(t *testing.T) {
	page := `<table id="sales">
<tr class="sale"><td>11/20/2025</td><td>$1.00</td><td>TAX DEED</td><td>U</td><td>I</td></tr>
<tr class="sale"><td>11/21/2025</td><td>$2.00</td><td>td correction</td><td>U</td><td>I</td></tr>
</table>`

	result, err := ExtractHistory(page, historyProfile(), historyTask(), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if result.FlipCount != 0 {
		t.Errorf("re-registration rows leaked through: %+v", result.Rows)
	}
}

func listingProfile() *profile.Profile {
	return &profile.Profile{
		Name: "testsales",
		Listing: &profile.Listing{
			ItemLocator:   "div.item",
			RequirePhrase: "Auction Sold",
			IDField:       "Parcel ID",
			LinkField:     models.ColLink,
			LinkPrefix:    "https://sales.example",
			Fields: map[string]profile.FieldSpec{
				"Parcel ID":          {CSS: "span.pid a"},
				models.ColLink:       {CSS: "span.pid a", Attr: "href"},
				models.ColSaleAmount: {CSS: "div.amount"},
				"Address":            {CSS: "div.addr", Join: true},
			},
		},
	}
}

const listingPage = `<html><body>
<div class="item"><p>Auction Sold</p>
  <div class="amount">$150,000.00</div>
  <div class="addr">123 Main St</div><div class="addr">Jacksonville, FL</div>
  <span class="pid"><a href="/Detail.aspx?id=1">P-200</a></span>
</div>
<div class="item"><p>Auction Canceled</p>
  <span class="pid"><a href="/Detail.aspx?id=2">P-201</a></span>
</div>
<div class="item"><p>Auction Sold</p>
  <div class="amount">$9,000.00</div>
  <span class="pid"><a></a></span>
</div>
</body></html>`

func TestExtractListing(t *testing.T) {
	records, err := ExtractListing(listingPage, listingProfile(), "01/15/2025", newTestLogger())
	if err != nil {
		t.Fatal(err)
	}

	// Canceled item fails the phrase check; the ID-less item is dropped.
	if len(records) != 1 {
		t.Fatalf("got %d records; want 1", len(records))
	}

	rec := records[0]
	if rec[models.ColDate] != "01/15/2025" {
		t.Errorf("scope date = %q", rec[models.ColDate])
	}
	if rec["Parcel ID"] != "P-200" {
		t.Errorf("parcel = %q", rec["Parcel ID"])
	}
	if rec[models.ColLink] != "https://sales.example/Detail.aspx?id=1" {
		t.Errorf("link = %q; want prefixed absolute link", rec[models.ColLink])
	}
	if rec["Address"] != "123 Main St, Jacksonville, FL" {
		t.Errorf("joined address = %q", rec["Address"])
	}
}

func TestExtractListingKeepsAbsoluteLinks(t *testing.T) {
	page := `<div class="item"><p>Auction Sold</p>
<div class="amount">$1</div>
<span class="pid"><a href="https://other.example/d/9">P-9</a></span></div>`

	records, err := ExtractListing(page, listingProfile(), "01/15/2025", newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0][models.ColLink] != "https://other.example/d/9" {
		t.Errorf("absolute link must pass through untouched: %+v", records)
	}
}

func TestResolveFieldIndexAndJoin(t *testing.T) {
	prof := historyProfile()
	prof.Fields = map[string]profile.FieldSpec{
		"Second": {CSS: "span.v", Index: 1},
		"All":    {CSS: "span.v", Join: true},
		"Gone":   {CSS: "span.absent"},
	}
	page := `<span class="v">a</span><span class="v">b</span><span class="v">c</span>
<table id="sales"></table>`

	result, err := ExtractHistory(page, prof, historyTask(), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	row := result.Rows[0]

	if row["Second"] != "b" {
		t.Errorf("indexed field = %q; want b", row["Second"])
	}
	if row["All"] != "a, b, c" {
		t.Errorf("joined field = %q; want a, b, c", row["All"])
	}
	if row["Gone"] != models.NA {
		t.Errorf("absent field = %q; want %q", row["Gone"], models.NA)
	}
}
