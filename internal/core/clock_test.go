package core

import (
	"context"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() returned %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	start := time.Now()
	time.Sleep(10 * time.Millisecond)
	elapsed := clock.Since(start)

	if elapsed < 10*time.Millisecond {
		t.Errorf("RealClock.Since() returned %v, expected >= 10ms", elapsed)
	}
}

func TestRealClock_SleepUntil(t *testing.T) {
	clock := RealClock{}
	target := time.Now().Add(20 * time.Millisecond)

	woke := clock.SleepUntil(context.Background(), target)

	if woke.Before(target) {
		t.Errorf("SleepUntil woke at %v, before target %v", woke, target)
	}
	if overshoot := woke.Sub(target); overshoot > 5*time.Millisecond {
		t.Errorf("SleepUntil overshot target by %v, expected < 5ms", overshoot)
	}
}

func TestRealClock_SleepUntil_PastTarget(t *testing.T) {
	clock := RealClock{}
	target := time.Now().Add(-time.Second)

	start := time.Now()
	clock.SleepUntil(context.Background(), target)

	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Errorf("SleepUntil on past target took %v, expected immediate return", elapsed)
	}
}

func TestRealClock_SleepUntil_Cancelled(t *testing.T) {
	clock := RealClock{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	clock.SleepUntil(ctx, time.Now().Add(time.Second))

	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("SleepUntil on cancelled context took %v, expected early wake", elapsed)
	}
}

func TestFakeClock_Now(t *testing.T) {
	start := time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("FakeClock.Now() returned %v, expected %v", clock.Now(), start)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	clock.Advance(1 * time.Hour)
	expected := start.Add(1 * time.Hour)

	if !clock.Now().Equal(expected) {
		t.Errorf("after Advance(1h), Now() returned %v, expected %v", clock.Now(), expected)
	}
}

func TestFakeClock_Since(t *testing.T) {
	start := time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if clock.Since(start) != 0 {
		t.Errorf("FakeClock.Since(start) = %v, expected 0", clock.Since(start))
	}

	clock.Advance(5 * time.Minute)
	if clock.Since(start) != 5*time.Minute {
		t.Errorf("after Advance(5m), Since(start) = %v, expected 5m", clock.Since(start))
	}
}

func TestFakeClock_SleepUntil_AdvancesToTarget(t *testing.T) {
	start := time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	target := start.Add(70 * time.Millisecond)
	woke := clock.SleepUntil(context.Background(), target)

	if !woke.Equal(target) {
		t.Errorf("SleepUntil returned %v, expected %v", woke, target)
	}
	if !clock.Now().Equal(target) {
		t.Errorf("after SleepUntil, Now() = %v, expected %v", clock.Now(), target)
	}
}

func TestFakeClock_SleepUntil_PastTargetDoesNotRewind(t *testing.T) {
	start := time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	clock.Advance(100 * time.Millisecond)

	woke := clock.SleepUntil(context.Background(), start.Add(10*time.Millisecond))

	if !woke.Equal(start.Add(100 * time.Millisecond)) {
		t.Errorf("SleepUntil on past target returned %v, expected current time %v",
			woke, start.Add(100*time.Millisecond))
	}
}

func TestFakeClock_RecordsSleeps(t *testing.T) {
	start := time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	first := start.Add(10 * time.Millisecond)
	second := start.Add(40 * time.Millisecond)
	clock.SleepUntil(context.Background(), first)
	clock.SleepUntil(context.Background(), second)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 recorded sleeps, got %d", len(sleeps))
	}
	if !sleeps[0].Equal(first) || !sleeps[1].Equal(second) {
		t.Errorf("recorded sleeps %v, expected [%v %v]", sleeps, first, second)
	}
}
