package scraper

import (
	"errors"
	"testing"
	"time"

	"taxdeed-scraper/models"
	"taxdeed-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger("error") }

// quickPacing zeroes every navigation delay so state-machine tests run at
// full speed. Restored on cleanup.
func quickPacing(t *testing.T) {
	t.Helper()
	vars := []*time.Duration{
		&navRetryDelay, &navReadySettle,
		&formStepDelay, &formClearDelay, &formSubmitDelay,
		&pageRenderDelay, &scopeRenderDelay,
		&defaultWaitPoll, &defaultStabilityPoll,
	}
	old := make([]time.Duration, len(vars))
	for i, v := range vars {
		old[i] = *v
		*v = 0
	}
	t.Cleanup(func() {
		for i, v := range vars {
			*v = old[i]
		}
	})
}

// stubPage scripts Page responses per locator. Sequenced values pop one per
// call and the last repeats; locators with no script read as absent.
type stubPage struct {
	counts     map[string][]int
	countErr   map[string]error
	texts      map[string][]string
	attrs      map[string][]string   // keyed locator + "|" + attr
	textsMulti map[string][][]string
	attrsMulti map[string][][]string // keyed locator + "|" + attr
	htmlSeq    []string
	navErrs    []error

	navs    []string
	clicks  []string
	cleared []string
	typed   []string
}

func popInt(m map[string][]int, key string) (int, bool) {
	seq, ok := m[key]
	if !ok || len(seq) == 0 {
		return 0, false
	}
	v := seq[0]
	if len(seq) > 1 {
		m[key] = seq[1:]
	}
	return v, true
}

func popString(m map[string][]string, key string) (string, bool) {
	seq, ok := m[key]
	if !ok || len(seq) == 0 {
		return "", false
	}
	v := seq[0]
	if len(seq) > 1 {
		m[key] = seq[1:]
	}
	return v, true
}

func popStrings(m map[string][][]string, key string) ([]string, bool) {
	seq, ok := m[key]
	if !ok || len(seq) == 0 {
		return nil, false
	}
	v := seq[0]
	if len(seq) > 1 {
		m[key] = seq[1:]
	}
	return v, true
}

func (p *stubPage) Navigate(url string) error {
	p.navs = append(p.navs, url)
	if len(p.navErrs) == 0 {
		return nil
	}
	err := p.navErrs[0]
	p.navErrs = p.navErrs[1:]
	return err
}

func (p *stubPage) Count(locator string) (int, error) {
	if err := p.countErr[locator]; err != nil {
		return 0, err
	}
	n, _ := popInt(p.counts, locator)
	return n, nil
}

func (p *stubPage) Text(locator string) (string, error) {
	v, _ := popString(p.texts, locator)
	return v, nil
}

func (p *stubPage) Texts(locator string) ([]string, error) {
	v, _ := popStrings(p.textsMulti, locator)
	return v, nil
}

func (p *stubPage) Attr(locator, name string) (string, error) {
	v, _ := popString(p.attrs, locator+"|"+name)
	return v, nil
}

func (p *stubPage) Attrs(locator, name string) ([]string, error) {
	v, _ := popStrings(p.attrsMulti, locator+"|"+name)
	return v, nil
}

func (p *stubPage) PageHTML() (string, error) {
	if len(p.htmlSeq) == 0 {
		return "", nil
	}
	v := p.htmlSeq[0]
	if len(p.htmlSeq) > 1 {
		p.htmlSeq = p.htmlSeq[1:]
	}
	return v, nil
}

func (p *stubPage) Click(locator string) error {
	p.clicks = append(p.clicks, locator)
	return nil
}

func (p *stubPage) Clear(locator string) error {
	p.cleared = append(p.cleared, locator)
	return nil
}

func (p *stubPage) Type(locator, text string) error {
	p.typed = append(p.typed, locator+"="+text)
	return nil
}

func countClicks(clicks []string, locator string) int {
	n := 0
	for _, c := range clicks {
		if c == locator {
			n++
		}
	}
	return n
}

// memSink collects written records in memory. failAfter >= 0 makes the
// write with that index fail.
type memSink struct {
	rows      []models.Record
	failAfter int
	closed    bool
}

func newMemSink() *memSink { return &memSink{failAfter: -1} }

func (m *memSink) Write(rec models.Record) error {
	if m.failAfter >= 0 && len(m.rows) >= m.failAfter {
		return errors.New("disk full")
	}
	m.rows = append(m.rows, rec)
	return nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}
