package utils

import (
	"errors"
	"strings"
	"testing"
)

func retryForTest() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		Delay:       0,
		Logger:      NewLogger("error"),
	}
}

func TestDoReturnsOKOnFirstSuccess(t *testing.T) {
	calls := 0
	res, err := retryForTest().Do("op", func() error {
		calls++
		return nil
	})
	if res != RetryOK || err != nil || calls != 1 {
		t.Errorf("got (%v, %v) after %d calls", res, err, calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	res, err := retryForTest().Do("op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if res != RetryOK || err != nil {
		t.Errorf("got (%v, %v)", res, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	res, err := retryForTest().Do("op", func() error {
		calls++
		return errors.New("always")
	})
	if res != RetryGaveUp || err == nil {
		t.Errorf("got (%v, %v)", res, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want the full budget", calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v; want the attempt count surfaced", err)
	}
}

func TestDoTerminalStopsImmediately(t *testing.T) {
	boom := errors.New("boom")
	cfg := retryForTest()
	cfg.Classify = func(error) ErrorClass { return Terminal }

	calls := 0
	res, err := cfg.Do("op", func() error {
		calls++
		return boom
	})
	if res != RetryGaveUp || !errors.Is(err, boom) {
		t.Errorf("got (%v, %v)", res, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; terminal errors must not retry", calls)
	}
}

func TestDoFatalPropagates(t *testing.T) {
	cfg := retryForTest()
	cfg.Classify = func(error) ErrorClass { return Fatal }

	calls := 0
	res, err := cfg.Do("op", func() error {
		calls++
		return errors.New("session dead")
	})
	if res != RetryFatal || err == nil {
		t.Errorf("got (%v, %v)", res, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; fatal errors must not retry", calls)
	}
}
