package scraper

import (
	"testing"
	"time"

	"taxdeed-scraper/config"
)

func TestKeepAliveProbeChecksLoginControl(t *testing.T) {
	quickPacing(t)
	page := &stubPage{counts: map[string][]int{`input[type="password"]`: {1}}}
	acquired := 0
	sessions := SessionFactory(func() (Page, func(), error) {
		acquired++
		return page, func() {}, nil
	})

	keep := NewKeepAlive(&config.Config{
		KeepAliveURL:     "https://app.example/login",
		KeepAliveLocator: `input[type="password"]`,
		KeepAliveMinSecs: 60,
		KeepAliveMaxSecs: 180,
	}, sessions, newTestLogger())

	if !keep.Enabled() {
		t.Fatal("probe with a URL must be enabled")
	}
	keep.Probe()

	if acquired != 1 {
		t.Errorf("sessions acquired = %d; want 1", acquired)
	}
	if len(page.navs) != 1 || page.navs[0] != "https://app.example/login" {
		t.Errorf("navigations = %v", page.navs)
	}
}

func TestKeepAliveDisabledNeverOpensASession(t *testing.T) {
	acquired := 0
	sessions := SessionFactory(func() (Page, func(), error) {
		acquired++
		return &stubPage{}, func() {}, nil
	})

	keep := NewKeepAlive(&config.Config{}, sessions, newTestLogger())
	if keep.Enabled() {
		t.Error("no URL configured, probe must be disabled")
	}
	keep.Probe()
	if acquired != 0 {
		t.Errorf("sessions acquired = %d; want none", acquired)
	}
}

func TestKeepAliveIntervalStaysWithinBounds(t *testing.T) {
	keep := NewKeepAlive(&config.Config{
		KeepAliveURL:     "https://app.example",
		KeepAliveMinSecs: 60,
		KeepAliveMaxSecs: 180,
	}, nil, newTestLogger())

	for i := 0; i < 50; i++ {
		got := keep.Interval()
		if got < 60*time.Second || got >= 180*time.Second {
			t.Fatalf("interval %v outside [60s, 180s)", got)
		}
	}
}

func TestKeepAliveIntervalDegenerateBounds(t *testing.T) {
	keep := NewKeepAlive(&config.Config{
		KeepAliveMinSecs: 90,
		KeepAliveMaxSecs: 90,
	}, nil, newTestLogger())

	if got := keep.Interval(); got != 90*time.Second {
		t.Errorf("interval = %v; want the fixed minimum", got)
	}
}
