package session

import (
	"errors"
	"log"

	"github.com/leonardotrapani/hyprlive/internal/live"
	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/playback"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

// dispatcher applies non-terminal inbound events. It is only used from the
// conversation's event loop.
type dispatcher struct {
	opts       Options
	transcript *transcript.Aggregator
	scheduler  *playback.Scheduler
	onDegraded func(error)
	muted      bool
}

func (d *dispatcher) dispatch(ev live.Event) {
	switch ev.Kind {
	case live.EventTranscription:
		item, ok := d.transcript.AppendDelta(ev.Role, ev.Text)
		if ok && d.opts.OnTranscript != nil {
			d.opts.OnTranscript(item)
		}

	case live.EventTurnComplete:
		d.transcript.CompleteTurn()

	case live.EventAudio:
		d.playAudio(ev.Audio)

	case live.EventInterrupted:
		if n := d.scheduler.Interrupt(); n > 0 {
			log.Printf("Session: interrupted, cut off %d queued chunks", n)
		}

	default:
		log.Printf("Session: ignoring %s event", ev.Kind)
	}
}

func (d *dispatcher) playAudio(blob string) {
	if d.muted || !d.scheduler.Available() {
		return
	}

	data, err := pcm.Decode(blob)
	if err != nil {
		log.Printf("Session: dropping audio chunk: %v", err)
		return
	}

	rate, channels := d.opts.OutputSampleRate, d.opts.OutputChannels
	if rate <= 0 {
		rate = 24000
	}
	if channels <= 0 {
		channels = 1
	}
	frame, err := pcm.DecodeAudioData(data, rate, channels)
	if err != nil {
		log.Printf("Session: dropping audio chunk: %v", err)
		return
	}

	if _, err := d.scheduler.Enqueue(frame); err != nil {
		if errors.Is(err, playback.ErrPlaybackUnavailable) {
			d.muted = true
			d.onDegraded(err)
			return
		}
		log.Printf("Session: enqueue audio: %v", err)
	}
}
