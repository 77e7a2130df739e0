package playback_test

import (
	"errors"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/playback"
	"github.com/leonardotrapani/hyprlive/internal/testutil"
)

// frameOf returns a 24 kHz mono frame lasting d.
func frameOf(d time.Duration) pcm.Frame {
	n := int(int64(24000) * int64(d) / int64(time.Second))
	return pcm.Frame{Samples: make([]int16, n), SampleRate: 24000, Channels: 1}
}

func TestEnqueueIsGapFree(t *testing.T) {
	out := &testutil.FakeOutput{}
	s := playback.NewScheduler(out)

	durations := []time.Duration{100 * time.Millisecond, 40 * time.Millisecond, 250 * time.Millisecond, 10 * time.Millisecond}
	var prevEnd time.Duration
	for i, d := range durations {
		u, err := s.Enqueue(frameOf(d))
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		if i > 0 && u.Start != prevEnd {
			t.Errorf("unit %d starts at %v, want %v (back-to-back)", i, u.Start, prevEnd)
		}
		if u.Duration != d {
			t.Errorf("unit %d duration = %v, want %v", i, u.Duration, d)
		}
		prevEnd = u.Start + u.Duration
	}

	if s.NextStartTime() != prevEnd {
		t.Errorf("next start = %v, want %v", s.NextStartTime(), prevEnd)
	}
	if s.Pending() != len(durations) {
		t.Errorf("pending = %d, want %d", s.Pending(), len(durations))
	}
}

func TestEnqueueNeverStartsInThePast(t *testing.T) {
	out := &testutil.FakeOutput{}
	s := playback.NewScheduler(out)

	u1, _ := s.Enqueue(frameOf(100 * time.Millisecond))
	out.Advance(500 * time.Millisecond)

	u2, err := s.Enqueue(frameOf(100 * time.Millisecond))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if u2.Start != 500*time.Millisecond {
		t.Errorf("late unit start = %v, want current clock 500ms", u2.Start)
	}
	if u2.Start < u1.Start+u1.Duration {
		t.Errorf("units overlap: %v < %v", u2.Start, u1.Start+u1.Duration)
	}
}

func TestUnitEndedRemovesFromPending(t *testing.T) {
	out := &testutil.FakeOutput{}
	s := playback.NewScheduler(out)

	s.Enqueue(frameOf(100 * time.Millisecond))
	s.Enqueue(frameOf(100 * time.Millisecond))
	out.Advance(150 * time.Millisecond)

	select {
	case id := <-s.Ended():
		s.OnUnitEnded(id)
	case <-time.After(time.Second):
		t.Fatal("no ended notification")
	}

	if s.Pending() != 1 {
		t.Errorf("pending = %d, want 1", s.Pending())
	}

	// unknown ids are ignored
	s.OnUnitEnded(9999)
	if s.Pending() != 1 {
		t.Errorf("pending after unknown id = %d, want 1", s.Pending())
	}
}

func TestInterruptCancelsEverythingAndRewinds(t *testing.T) {
	out := &testutil.FakeOutput{}
	s := playback.NewScheduler(out)

	s.Enqueue(frameOf(300 * time.Millisecond))
	s.Enqueue(frameOf(300 * time.Millisecond))
	out.Advance(100 * time.Millisecond)

	if n := s.Interrupt(); n != 2 {
		t.Errorf("Interrupt() = %d, want 2", n)
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d, want 0", s.Pending())
	}
	if s.NextStartTime() != 0 {
		t.Errorf("next start = %v, want 0", s.NextStartTime())
	}
	for i, src := range out.Sources() {
		if !src.Cancelled() {
			t.Errorf("source %d not cancelled", i)
		}
	}

	// cancelled units never come back to life
	out.Advance(time.Second)
	u, err := s.Enqueue(frameOf(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("enqueue after interrupt: %v", err)
	}
	if u.Start != out.Now() {
		t.Errorf("post-interrupt start = %v, want current clock %v", u.Start, out.Now())
	}
	if s.Pending() != 1 {
		t.Errorf("pending = %d, want 1", s.Pending())
	}
}

func TestInterruptWhenIdle(t *testing.T) {
	s := playback.NewScheduler(&testutil.FakeOutput{})
	if n := s.Interrupt(); n != 0 {
		t.Errorf("Interrupt() on empty scheduler = %d", n)
	}
}

func TestEnqueueWithoutOutput(t *testing.T) {
	s := playback.NewScheduler(nil)
	if s.Available() {
		t.Error("scheduler without output should not be available")
	}
	_, err := s.Enqueue(frameOf(10 * time.Millisecond))
	if !errors.Is(err, playback.ErrPlaybackUnavailable) {
		t.Errorf("expected ErrPlaybackUnavailable, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestEnqueueScheduleFailure(t *testing.T) {
	out := &testutil.FakeOutput{Err: errors.New("device gone")}
	s := playback.NewScheduler(out)

	_, err := s.Enqueue(frameOf(10 * time.Millisecond))
	if !errors.Is(err, playback.ErrPlaybackUnavailable) {
		t.Errorf("expected ErrPlaybackUnavailable, got %v", err)
	}
	if s.Pending() != 0 {
		t.Errorf("failed enqueue should not register a unit")
	}
}

func TestCloseReleasesOutputOnce(t *testing.T) {
	out := &testutil.FakeOutput{}
	s := playback.NewScheduler(out)
	s.Enqueue(frameOf(100 * time.Millisecond))

	s.Close()
	s.Close()

	if out.Closed() != 1 {
		t.Errorf("output closed %d times, want 1", out.Closed())
	}
	if s.Pending() != 0 {
		t.Error("close should interrupt pending units")
	}
	if _, err := s.Enqueue(frameOf(10 * time.Millisecond)); !errors.Is(err, playback.ErrPlaybackUnavailable) {
		t.Errorf("enqueue after close: %v", err)
	}
}
