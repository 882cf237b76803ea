package scraper

import (
	"errors"
	"testing"

	"taxdeed-scraper/profile"
)

func TestReadPageIndexFromText(t *testing.T) {
	quickPacing(t)
	tests := []struct {
		label     string
		cur, tot  int
		parseable bool
	}{
		{"Page 2 of 17", 2, 17, true},
		{"  page 1 OF 1 ", 1, 1, true},
		{"Showing results", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		page := &stubPage{texts: map[string][]string{"span.readout": {tt.label}}}
		eng := NewEngine(page, directProfile(), newTestLogger())
		cur, tot, ok := eng.readPageIndex(&profile.Pagination{ReadoutLocator: "span.readout"})
		if cur != tt.cur || tot != tt.tot || ok != tt.parseable {
			t.Errorf("readPageIndex(%q) = (%d, %d, %v); want (%d, %d, %v)",
				tt.label, cur, tot, ok, tt.cur, tt.tot, tt.parseable)
		}
	}
}

func TestReadPageIndexFromAttr(t *testing.T) {
	quickPacing(t)
	page := &stubPage{attrs: map[string][]string{"div.pager|aria-label": {"Page 3 of 9"}}}
	eng := NewEngine(page, directProfile(), newTestLogger())

	cur, tot, ok := eng.readPageIndex(&profile.Pagination{
		ReadoutLocator: "div.pager",
		ReadoutAttr:    "aria-label",
	})
	if !ok || cur != 3 || tot != 9 {
		t.Errorf("got (%d, %d, %v); want (3, 9, true)", cur, tot, ok)
	}
}

func TestAdvancePageStopsAtLastIndex(t *testing.T) {
	quickPacing(t)
	pg := &profile.Pagination{ReadoutLocator: "span.readout", NextLocator: "a.next"}
	page := &stubPage{
		texts:  map[string][]string{"span.readout": {"Page 4 of 4"}},
		counts: map[string][]int{"a.next": {1}},
	}
	eng := NewEngine(page, directProfile(), newTestLogger())

	if eng.AdvancePage(pg) {
		t.Error("advanced past the final page")
	}
	if len(page.clicks) != 0 {
		t.Errorf("clicked %v on the final page", page.clicks)
	}
}

func TestAdvancePageVerifiesIndexMoved(t *testing.T) {
	quickPacing(t)
	pg := &profile.Pagination{ReadoutLocator: "span.readout", NextLocator: "a.next"}
	page := &stubPage{
		// Readout before the click, then two stale reads, then the new page.
		texts:  map[string][]string{"span.readout": {"Page 1 of 3", "Page 1 of 3", "Page 1 of 3", "Page 2 of 3"}},
		counts: map[string][]int{"a.next": {1}},
	}
	eng := NewEngine(page, directProfile(), newTestLogger())

	if !eng.AdvancePage(pg) {
		t.Fatal("advance failed despite the index moving")
	}
	if countClicks(page.clicks, "a.next") != 1 {
		t.Errorf("clicks = %v", page.clicks)
	}
}

func TestAdvancePageGivesUpWhenIndexStuck(t *testing.T) {
	quickPacing(t)
	pg := &profile.Pagination{ReadoutLocator: "span.readout", NextLocator: "a.next"}
	page := &stubPage{
		texts:  map[string][]string{"span.readout": {"Page 1 of 3"}}, // never moves
		counts: map[string][]int{"a.next": {1}},
	}
	eng := NewEngine(page, directProfile(), newTestLogger())

	if eng.AdvancePage(pg) {
		t.Error("reported an advance the readout never confirmed")
	}
}

func TestAdvancePageWithoutReadoutClicksOnFaith(t *testing.T) {
	quickPacing(t)
	// No readout configured at all: click if the control exists, trust the
	// render delay. The empty locator must never reach the page, so the stub
	// plants a parseable last-page readout under it to catch a stray query.
	pg := &profile.Pagination{NextLocator: "span.PageRight"}
	page := &stubPage{
		counts: map[string][]int{"span.PageRight": {1}},
		texts:  map[string][]string{"": {"Page 9 of 9", "Page 9 of 9"}},
	}
	eng := NewEngine(page, directProfile(), newTestLogger())

	if !eng.AdvancePage(pg) {
		t.Fatal("advance refused with the control present")
	}
	if countClicks(page.clicks, "span.PageRight") != 1 {
		t.Errorf("clicks = %v", page.clicks)
	}
	if len(page.texts[""]) != 2 {
		t.Errorf("empty-locator reads left %v; want none consumed", page.texts[""])
	}

	// Control gone: pagination is over.
	page2 := &stubPage{}
	eng2 := NewEngine(page2, directProfile(), newTestLogger())
	if eng2.AdvancePage(pg) {
		t.Error("advanced with no next control on the page")
	}
}

func TestAdvancePageNilConfig(t *testing.T) {
	eng := NewEngine(&stubPage{}, directProfile(), newTestLogger())
	if eng.AdvancePage(nil) {
		t.Error("nil pagination config must read as single-page")
	}
}

func TestAdvanceScopeAbsentControlEndsWalk(t *testing.T) {
	quickPacing(t)
	page := &stubPage{}
	eng := NewEngine(page, directProfile(), newTestLogger())

	advanced, err := eng.AdvanceScope("a.nextAuction", "span.label")
	if advanced || err != nil {
		t.Errorf("got (%v, %v); want (false, nil)", advanced, err)
	}
}

func TestAdvanceScopeWaitsForLabelChange(t *testing.T) {
	quickPacing(t)
	page := &stubPage{
		counts: map[string][]int{"a.nextAuction": {1}},
		texts:  map[string][]string{"span.label": {"01/15/2025", "01/15/2025", "01/22/2025"}},
	}
	eng := NewEngine(page, directProfile(), newTestLogger())

	advanced, err := eng.AdvanceScope("a.nextAuction", "span.label")
	if !advanced || err != nil {
		t.Fatalf("got (%v, %v); want advancement", advanced, err)
	}
	if countClicks(page.clicks, "a.nextAuction") != 1 {
		t.Errorf("clicks = %v", page.clicks)
	}
}

func TestAdvanceScopeStuckLabelIsFatal(t *testing.T) {
	quickPacing(t)
	page := &stubPage{
		counts: map[string][]int{"a.nextAuction": {1}},
		texts:  map[string][]string{"span.label": {"01/15/2025"}}, // frozen
	}
	eng := NewEngine(page, directProfile(), newTestLogger())

	advanced, err := eng.AdvanceScope("a.nextAuction", "span.label")
	if advanced {
		t.Error("reported an advance the label never confirmed")
	}
	if !errors.Is(err, ErrStuck) {
		t.Errorf("err = %v; want ErrStuck", err)
	}
}

func TestAdvanceScopeWithoutLabelAssumesSuccess(t *testing.T) {
	quickPacing(t)
	page := &stubPage{counts: map[string][]int{"a.nextAuction": {1}}}
	eng := NewEngine(page, directProfile(), newTestLogger())

	advanced, err := eng.AdvanceScope("a.nextAuction", "")
	if !advanced || err != nil {
		t.Errorf("got (%v, %v); want blind advancement", advanced, err)
	}
}
