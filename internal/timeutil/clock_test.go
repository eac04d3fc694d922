package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := NewRealClock()
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := NewRealClock()
	past := time.Now().Add(-time.Second)
	if d := clock.Since(past); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	clock := NewRealClock()
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_AdvanceFiresWaiters(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	ch := clock.After(time.Second)

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("waiter fired before deadline")
	default:
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case now := <-ch:
		if !now.Equal(time.Unix(1700000001, 0)) {
			t.Errorf("fired at %v", now)
		}
	default:
		t.Fatal("waiter did not fire at deadline")
	}
}

func TestMockClock_AdvanceFiresTickers(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	clock.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after one interval")
	}
}

func TestMockClock_SleepRecorded(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	clock.Sleep(time.Second)
	clock.Sleep(2 * time.Second)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("Sleeps() = %v", sleeps)
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	target := time.Unix(1800000000, 0)
	clock.Set(target)
	if !clock.Now().Equal(target) {
		t.Errorf("Now() = %v, want %v", clock.Now(), target)
	}
}
