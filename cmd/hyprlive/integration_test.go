//go:build integration

package main

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprlive/internal/live"
	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/provider"
	"github.com/leonardotrapani/hyprlive/internal/recording"
	"github.com/leonardotrapani/hyprlive/internal/session"
	"github.com/leonardotrapani/hyprlive/internal/testutil"
)

const (
	testSampleRate = 16000
	testTimeout    = 45 * time.Second
)

// TestLiveProviders holds a short conversation with every provider that has
// an API key in the environment: one second of tone, then silence so server
// VAD ends the turn.
func TestLiveProviders(t *testing.T) {
	names := provider.ListProviders()
	sort.Strings(names)

	for _, name := range names {
		name := name
		t.Run(name, func(t *testing.T) {
			apiKey := provider.APIKeyFromEnv(name)
			if apiKey == "" {
				t.Skipf("no API key for %s (set %v)", name, provider.EnvVarsForProvider(name))
			}
			runLiveConversation(t, name, apiKey)
		})
	}
}

func runLiveConversation(t *testing.T, name, apiKey string) {
	p := provider.GetProvider(name)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	dialer, err := live.NewDialer(ctx, name, apiKey, p.DefaultModel())
	if err != nil {
		t.Fatalf("NewDialer: %v", err)
	}

	capture := &testutil.FakeCaptureDevice{Frames: toneThenSilence(time.Second, 2*time.Second)}
	output := &testutil.FakeOutput{}

	var (
		mu     sync.Mutex
		states []session.State
		stErr  error
	)
	opts := session.Options{
		Live: live.Config{
			Model:               p.DefaultModel(),
			Voice:               p.DefaultVoice(),
			SystemInstruction:   "Reply with one short sentence whenever you hear anything.",
			InputTranscription:  true,
			OutputTranscription: true,
		},
		Capture:          recording.DefaultConfig(),
		OutputSampleRate: p.OutputSampleRate(),
		OutputChannels:   1,
		ConnectTimeout:   15 * time.Second,
		OnStateChange: func(s session.State, err error) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
			if err != nil {
				stErr = err
			}
		},
	}

	c := session.New(session.Deps{
		Capture:  capture,
		Dialer:   dialer,
		Playback: &testutil.FakePlaybackDevice{Output: output},
	}, opts)
	defer c.Stop()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	testutil.WaitFor(t, 20*time.Second, func() bool {
		s := c.State()
		return s == session.Connected || s == session.Error
	})
	if c.State() != session.Connected {
		mu.Lock()
		defer mu.Unlock()
		t.Fatalf("never connected: states %v, err %v", states, stErr)
	}

	testutil.WaitFor(t, 30*time.Second, func() bool {
		return len(c.Transcript()) > 0 || len(output.Sources()) > 0
	})
	t.Logf("%s: %d transcript items, %d audio chunks", name, len(c.Transcript()), len(output.Sources()))

	if c.State() == session.Error {
		t.Errorf("conversation failed: %v", c.Err())
	}
}

// toneThenSilence returns 4096-sample frames of a 440 Hz tone followed by silence.
func toneThenSilence(tone, silence time.Duration) []pcm.Frame {
	const frameLength = 4096
	total := int((tone + silence).Seconds() * testSampleRate)
	toneSamples := int(tone.Seconds() * testSampleRate)

	var frames []pcm.Frame
	for off := 0; off < total; off += frameLength {
		samples := make([]int16, frameLength)
		for i := range samples {
			n := off + i
			if n < toneSamples {
				samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(n)/testSampleRate))
			}
		}
		frames = append(frames, pcm.Frame{Samples: samples, SampleRate: testSampleRate, Channels: 1})
	}
	return frames
}
