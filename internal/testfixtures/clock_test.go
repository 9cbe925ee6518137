package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	clock := NewClock(At(9, 5))

	updated := clock.Advance(5 * time.Minute)
	if !updated.Equal(At(9, 10)) {
		t.Fatalf("advance returned %v", updated)
	}

	if got := clock.SetAt(8, 30); !got.Equal(clock.Now()) || got.Hour() != 8 {
		t.Fatalf("SetAt moved the clock to %v", clock.Now())
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(At(9, 0))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(At(9, 1)) {
		t.Fatalf("expected 09:01 from NowFunc, got %v", got)
	}

	var missing *Clock
	if missing.NowFunc()().IsZero() {
		t.Fatalf("nil clock should fall back to the wall clock")
	}
}
