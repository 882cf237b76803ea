// Package profile loads per-source configuration bundles. A profile carries
// every site-specific locator and phrase list so the navigation and
// extraction code stays generic across jurisdictions.
//
// Browser-side locators (ready, search controls, pagination, calendar, the
// history settle locator) may be XPath or standard CSS; locators resolved
// against page snapshots (history and listing fields) are goquery CSS and may
// use its pseudo-class extensions such as :contains(). Validate rejects
// profiles that feed a goquery-only selector to the browser.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldSpec locates one extractable field. In YAML it is either a plain CSS
// string or a mapping with css/attr/index/join keys.
type FieldSpec struct {
	CSS   string `yaml:"css"`
	Attr  string `yaml:"attr"`  // read this attribute instead of the text
	Index int    `yaml:"index"` // 0-based match index, default first
	Join  bool   `yaml:"join"`  // join every match with ", " (multi-part fields)
}

// UnmarshalYAML accepts the plain-string shorthand.
func (f *FieldSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.CSS = value.Value
		return nil
	}
	type plain FieldSpec
	return value.Decode((*plain)(f))
}

// SearchForm describes a search-by-key workflow: open the form URL, dismiss
// the consent control once per session, clear the input, type the key, click
// the trigger.
type SearchForm struct {
	URL           string `yaml:"url"`
	AgreeLocator  string `yaml:"agree_locator"`
	InputLocator  string `yaml:"input_locator"`
	ButtonLocator string `yaml:"button_locator"`
}

// HistoryTable locates the sales-history rows on a parcel detail page and
// the per-row columns, all relative CSS resolved against the snapshot.
type HistoryTable struct {
	RowLocator string `yaml:"row_locator"`

	// SettleLocator is the browser-dialect locator (XPath or standard CSS)
	// the stability wait counts in the live page before the snapshot is
	// taken. Empty falls back to RowLocator, which must then be
	// browser-evaluable.
	SettleLocator string `yaml:"settle_locator"`

	Date       FieldSpec `yaml:"date"`
	Price      FieldSpec `yaml:"price"`
	Instrument FieldSpec `yaml:"instrument"`
	Qualified  FieldSpec `yaml:"qualified"`
	Vacant     FieldSpec `yaml:"vacant"`
}

// Settle returns the locator the pre-snapshot stability wait counts.
func (h *HistoryTable) Settle() string {
	if h.SettleLocator != "" {
		return h.SettleLocator
	}
	return h.RowLocator
}

// Pagination locates the "Page X of Y" readout and the next-page control on
// a listing page.
type Pagination struct {
	ReadoutLocator string `yaml:"readout_locator"`
	ReadoutAttr    string `yaml:"readout_attr"` // e.g. aria-label; empty reads text
	NextLocator    string `yaml:"next_locator"`
}

// Calendar describes the month-by-month auction calendar widget.
type Calendar struct {
	URL          string `yaml:"url"`
	DayLocator   string `yaml:"day_locator"` // cells flagged as auction days
	DayAttr      string `yaml:"day_attr"`    // attribute carrying the date
	LabelLocator string `yaml:"label_locator"`
	NextLocator  string `yaml:"next_locator"`
}

// Listing describes an auction-results page: one scope (auction date) per
// page set, item blocks inside, optional pagination, optional next-scope
// control for linear advancement.
type Listing struct {
	URLTemplate      string               `yaml:"url_template"` // %s filled with MM/DD/YYYY
	DateLocator      string               `yaml:"date_locator"` // on-page scope label
	ItemLocator      string               `yaml:"item_locator"` // CSS, counted and parsed
	RequirePhrase    string               `yaml:"require_phrase"`
	WaitingLocator   string               `yaml:"waiting_locator"` // scope-exhausted marker
	ClosedLocator    string               `yaml:"closed_locator"`  // results-present marker
	Fields           map[string]FieldSpec `yaml:"fields"`
	IDField          string               `yaml:"id_field"`
	LinkField        string               `yaml:"link_field"`
	LinkPrefix       string               `yaml:"link_prefix"` // prepended to relative hrefs
	Pagination       *Pagination          `yaml:"pagination"`
	NextScopeLocator string               `yaml:"next_scope_locator"`

	// DetailProfile names the history profile that deep-scrapes rows this
	// listing discovers. Empty means the listing rows are the final product.
	DetailProfile string `yaml:"detail_profile"`
}

// Profile is one source site's complete configuration bundle. Read-only
// after load.
type Profile struct {
	Name string `yaml:"name"`

	Search *SearchForm `yaml:"search"` // nil means direct-URL workflow

	ReadyLocator   string   `yaml:"ready_locator"`
	BannedPhrases  []string `yaml:"banned_phrases"`
	FailurePhrases []string `yaml:"failure_phrases"`

	Fields  map[string]FieldSpec `yaml:"fields"` // page-level detail fields
	History *HistoryTable        `yaml:"history"`

	// BaselineInstruments lists instrument-type markers identifying a row as
	// the same transaction class as the baseline sale; such rows are never
	// emitted as flips. Case-insensitive substring match. Empty disables the
	// exclusion.
	BaselineInstruments []string `yaml:"baseline_instruments"`

	Listing  *Listing  `yaml:"listing"`
	Calendar *Calendar `yaml:"calendar"`

	OutputFile string `yaml:"output_file"`
}

// Load reads and validates a single profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile: %s: %w", path, err)
	}
	return &p, nil
}

// LoadDir loads every *.yaml / *.yml profile in dir, keyed by profile name.
func LoadDir(dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("profile: read dir %s: %w", dir, err)
	}

	profiles := make(map[string]*Profile)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		p, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := profiles[p.Name]; dup {
			return nil, fmt.Errorf("profile: duplicate name %q in %s", p.Name, e.Name())
		}
		profiles[p.Name] = p
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("profile: no profiles found in %s", dir)
	}
	return profiles, nil
}

// Names returns the sorted profile names of a registry, for deterministic
// batch ordering.
func Names(profiles map[string]*Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// goqueryPseudos lists the selector extensions goquery accepts but
// document.querySelectorAll rejects. A locator sent to the live page must
// avoid them, otherwise the element count errors on every poll.
var goqueryPseudos = []string{":contains(", ":containsown(", ":matches(", ":matchesown(", ":haschild("}

func goqueryOnly(loc string) bool {
	lower := strings.ToLower(loc)
	for _, ext := range goqueryPseudos {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// browserLocators pairs every locator the profile feeds to the live page
// with its config name. Snapshot-side locators stay out: goquery resolves
// those.
func (p *Profile) browserLocators() [][2]string {
	locs := [][2]string{{"ready_locator", p.ReadyLocator}}
	if p.Search != nil {
		locs = append(locs,
			[2]string{"search agree_locator", p.Search.AgreeLocator},
			[2]string{"search input_locator", p.Search.InputLocator},
			[2]string{"search button_locator", p.Search.ButtonLocator},
		)
	}
	if p.History != nil {
		locs = append(locs, [2]string{"history settle locator", p.History.Settle()})
	}
	if p.Listing != nil {
		l := p.Listing
		locs = append(locs,
			[2]string{"listing item_locator", l.ItemLocator},
			[2]string{"listing date_locator", l.DateLocator},
			[2]string{"listing waiting_locator", l.WaitingLocator},
			[2]string{"listing closed_locator", l.ClosedLocator},
			[2]string{"listing next_scope_locator", l.NextScopeLocator},
		)
		if l.Pagination != nil {
			locs = append(locs,
				[2]string{"pagination readout_locator", l.Pagination.ReadoutLocator},
				[2]string{"pagination next_locator", l.Pagination.NextLocator},
			)
		}
	}
	if p.Calendar != nil {
		locs = append(locs,
			[2]string{"calendar day_locator", p.Calendar.DayLocator},
			[2]string{"calendar label_locator", p.Calendar.LabelLocator},
			[2]string{"calendar next_locator", p.Calendar.NextLocator},
		)
	}
	return locs
}

// Validate checks that the profile describes at least one complete workflow.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("missing name")
	}

	hasHistory := p.History != nil
	hasListing := p.Listing != nil

	if !hasHistory && !hasListing {
		return fmt.Errorf("profile %q configures neither history nor listing", p.Name)
	}

	if hasHistory {
		if p.ReadyLocator == "" {
			return fmt.Errorf("profile %q: history requires ready_locator", p.Name)
		}
		if p.History.RowLocator == "" {
			return fmt.Errorf("profile %q: history requires row_locator", p.Name)
		}
		if p.History.Date.CSS == "" || p.History.Price.CSS == "" {
			return fmt.Errorf("profile %q: history requires date and price locators", p.Name)
		}
		if p.Search != nil {
			if p.Search.URL == "" || p.Search.InputLocator == "" || p.Search.ButtonLocator == "" {
				return fmt.Errorf("profile %q: search workflow requires url, input_locator and button_locator", p.Name)
			}
		}
	}

	if hasListing {
		if p.Listing.ItemLocator == "" {
			return fmt.Errorf("profile %q: listing requires item_locator", p.Name)
		}
		if len(p.Listing.Fields) == 0 {
			return fmt.Errorf("profile %q: listing requires at least one field", p.Name)
		}
		if p.Calendar != nil {
			c := p.Calendar
			if c.URL == "" || c.DayLocator == "" || c.LabelLocator == "" || c.NextLocator == "" {
				return fmt.Errorf("profile %q: calendar requires url, day_locator, label_locator and next_locator", p.Name)
			}
			if p.Listing.URLTemplate == "" {
				return fmt.Errorf("profile %q: calendar mode requires listing url_template", p.Name)
			}
		}
	}

	for _, nl := range p.browserLocators() {
		if name, loc := nl[0], nl[1]; goqueryOnly(loc) {
			return fmt.Errorf("profile %q: %s %q uses a goquery-only pseudo-class the browser cannot evaluate", p.Name, name, loc)
		}
	}

	return nil
}
