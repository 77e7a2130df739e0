package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
)

var ErrPlaybackUnavailable = errors.New("playback unavailable")

// Output is an audio sink with its own clock. Schedule queues frame to start
// at the given clock time and calls ended once the source stops, whether it
// played to completion or was cancelled.
type Output interface {
	Now() time.Duration
	Schedule(frame pcm.Frame, start time.Duration, ended func()) (Source, error)
	Close() error
}

// Source is a scheduled buffer on an Output.
type Source interface {
	Cancel()
}

// Device opens an Output for the duration of one session.
type Device interface {
	Open(ctx context.Context) (Output, error)
}

// Unit is a frame that has been handed to the output and not yet finished.
type Unit struct {
	ID       uint64
	Start    time.Duration
	Duration time.Duration

	source Source
}

// Scheduler stitches decoded frames into one gap-free timeline on an Output.
//
// Enqueue, OnUnitEnded, Interrupt and Close must be called from a single
// goroutine. Ended notifications produced by the output are delivered on the
// Ended channel so that the owner can feed them back through OnUnitEnded.
type Scheduler struct {
	out       Output
	nextStart time.Duration
	lastID    uint64
	pending   map[uint64]*Unit

	ended     chan uint64
	closed    chan struct{}
	closeOnce sync.Once
}

// NewScheduler returns a scheduler playing into out. A nil out makes every
// Enqueue fail with ErrPlaybackUnavailable.
func NewScheduler(out Output) *Scheduler {
	return &Scheduler{
		out:     out,
		pending: make(map[uint64]*Unit),
		ended:   make(chan uint64, 64),
		closed:  make(chan struct{}),
	}
}

// Enqueue schedules frame right after the previously scheduled audio, or now
// if the timeline has already run dry.
func (s *Scheduler) Enqueue(frame pcm.Frame) (*Unit, error) {
	if s.out == nil {
		return nil, ErrPlaybackUnavailable
	}
	select {
	case <-s.closed:
		return nil, ErrPlaybackUnavailable
	default:
	}

	start := max(s.nextStart, s.out.Now())

	s.lastID++
	id := s.lastID
	src, err := s.out.Schedule(frame, start, func() { s.notifyEnded(id) })
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlaybackUnavailable, err)
	}

	u := &Unit{ID: id, Start: start, Duration: frame.Duration(), source: src}
	s.pending[id] = u
	s.nextStart = start + u.Duration
	return u, nil
}

func (s *Scheduler) notifyEnded(id uint64) {
	select {
	case s.ended <- id:
	case <-s.closed:
	}
}

// Ended delivers the IDs of units whose source has stopped.
func (s *Scheduler) Ended() <-chan uint64 {
	return s.ended
}

// OnUnitEnded drops a finished unit from the pending set. Unknown IDs (for
// example units already removed by Interrupt) are ignored.
func (s *Scheduler) OnUnitEnded(id uint64) {
	delete(s.pending, id)
}

// Interrupt stops everything queued or playing, empties the pending set and
// rewinds the timeline so the next frame starts at the output's current time.
// It returns the number of units cut off.
func (s *Scheduler) Interrupt() int {
	n := len(s.pending)
	for id, u := range s.pending {
		u.source.Cancel()
		delete(s.pending, id)
	}
	s.nextStart = 0
	return n
}

func (s *Scheduler) Pending() int {
	return len(s.pending)
}

func (s *Scheduler) NextStartTime() time.Duration {
	return s.nextStart
}

// Available reports whether frames can be played at all.
func (s *Scheduler) Available() bool {
	return s.out != nil
}

// Close interrupts playback and releases the output. Safe to call twice.
func (s *Scheduler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Interrupt()
		close(s.closed)
		if s.out != nil {
			err = s.out.Close()
		}
	})
	return err
}
