package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leonardotrapani/hyprlive/internal/pcm"
	"github.com/leonardotrapani/hyprlive/internal/provider"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

// mockOpenAIRealtimeServer creates a mock WebSocket server for the OpenAI Realtime API
func mockOpenAIRealtimeServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test-key" {
			t.Errorf("unexpected auth header: %s", auth)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if beta := r.Header.Get("OpenAI-Beta"); beta != "realtime=v1" {
			t.Errorf("unexpected OpenAI-Beta header: %s", beta)
		}
		if model := r.URL.Query().Get("model"); model != "gpt-4o-realtime-preview" {
			t.Errorf("unexpected model query parameter: %q", model)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		handler(conn)
	}))
}

func dialMock(t *testing.T, server *httptest.Server, cfg Config) Channel {
	t.Helper()
	endpoint := &provider.EndpointConfig{BaseURL: "ws" + strings.TrimPrefix(server.URL, "http")}
	dialer := NewOpenAIRealtimeDialer(endpoint, "sk-test-key")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := dialer.Dial(ctx, cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return ch
}

func defaultRealtimeConfig() Config {
	return Config{
		Model:               "gpt-4o-realtime-preview",
		Voice:               "alloy",
		Language:            "en",
		SystemInstruction:   "You are concise.",
		InputTranscription:  true,
		OutputTranscription: true,
	}
}

func readSessionUpdate(t *testing.T, conn *websocket.Conn) openaiRealtimeSessionUpdate {
	t.Helper()
	var update openaiRealtimeSessionUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Errorf("read session.update: %v", err)
	}
	return update
}

func TestOpenAIRealtimeDialConfiguresSession(t *testing.T) {
	got := make(chan openaiRealtimeSessionUpdate, 1)

	server := mockOpenAIRealtimeServer(t, func(conn *websocket.Conn) {
		got <- readSessionUpdate(t, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	ch := dialMock(t, server, defaultRealtimeConfig())
	defer ch.Close()

	var update openaiRealtimeSessionUpdate
	select {
	case update = <-got:
	case <-time.After(time.Second):
		t.Fatal("server never received session.update")
	}

	if update.Type != "session.update" {
		t.Errorf("type = %q", update.Type)
	}
	s := update.Session
	if strings.Join(s.Modalities, ",") != "audio,text" {
		t.Errorf("modalities = %v", s.Modalities)
	}
	if s.Voice != "alloy" || s.Instructions != "You are concise." {
		t.Errorf("voice/instructions = %q/%q", s.Voice, s.Instructions)
	}
	if s.InputAudioFormat != "pcm16" || s.OutputAudioFormat != "pcm16" {
		t.Errorf("formats = %q/%q", s.InputAudioFormat, s.OutputAudioFormat)
	}
	if s.InputAudioTranscription == nil || s.InputAudioTranscription.Language != "en" {
		t.Errorf("input transcription = %+v", s.InputAudioTranscription)
	}
	if s.TurnDetection == nil || s.TurnDetection.Type != "server_vad" || !s.TurnDetection.CreateResponse {
		t.Errorf("turn detection = %+v", s.TurnDetection)
	}
}

func TestOpenAIRealtimeClassifiesServerEvents(t *testing.T) {
	audio := pcm.Encode([]int16{100, -100})

	server := mockOpenAIRealtimeServer(t, func(conn *websocket.Conn) {
		readSessionUpdate(t, conn)
		events := []map[string]any{
			{"type": "session.updated"},
			{"type": "conversation.item.input_audio_transcription.delta", "item_id": "item_1", "delta": "Hi "},
			{"type": "conversation.item.input_audio_transcription.delta", "item_id": "item_1", "delta": "there"},
			{"type": "conversation.item.input_audio_transcription.completed", "item_id": "item_1", "transcript": "Hi there"},
			{"type": "conversation.item.input_audio_transcription.completed", "item_id": "item_2", "transcript": "Again"},
			{"type": "response.audio_transcript.delta", "delta": "Hello"},
			{"type": "response.audio.delta", "delta": audio},
			{"type": "error", "error": map[string]any{"type": "invalid_request_error", "message": "ignored"}},
			{"type": "input_audio_buffer.speech_started"},
			{"type": "response.done"},
		}
		for _, ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				t.Errorf("write %v: %v", ev["type"], err)
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	ch := dialMock(t, server, defaultRealtimeConfig())
	defer ch.Close()

	want := []Event{
		{Kind: EventTranscription, Role: transcript.RoleUser, Text: "Hi "},
		{Kind: EventTranscription, Role: transcript.RoleUser, Text: "there"},
		{Kind: EventTranscription, Role: transcript.RoleUser, Text: "Again"},
		{Kind: EventTranscription, Role: transcript.RoleModel, Text: "Hello"},
		{Kind: EventAudio, Audio: audio},
		{Kind: EventInterrupted},
		{Kind: EventTurnComplete},
		{Kind: EventClosed},
	}
	for i, w := range want {
		ev := nextEvent(t, ch.Events())
		if ev.Kind != w.Kind || ev.Role != w.Role || ev.Text != w.Text || ev.Audio != w.Audio {
			t.Errorf("event %d = %+v, want %+v", i, ev, w)
		}
	}
}

func TestOpenAIRealtimeRespectsTranscriptionToggles(t *testing.T) {
	server := mockOpenAIRealtimeServer(t, func(conn *websocket.Conn) {
		update := readSessionUpdate(t, conn)
		if update.Session.InputAudioTranscription != nil {
			t.Error("input transcription should not be requested")
		}
		conn.WriteJSON(map[string]any{"type": "conversation.item.input_audio_transcription.delta", "item_id": "a", "delta": "x"})
		conn.WriteJSON(map[string]any{"type": "response.audio_transcript.delta", "delta": "y"})
		conn.WriteJSON(map[string]any{"type": "response.done"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := defaultRealtimeConfig()
	cfg.InputTranscription = false
	cfg.OutputTranscription = false
	ch := dialMock(t, server, cfg)
	defer ch.Close()

	if ev := nextEvent(t, ch.Events()); ev.Kind != EventTurnComplete {
		t.Errorf("first event = %+v, want turn-complete only", ev)
	}
}

func TestOpenAIRealtimeSendResamples(t *testing.T) {
	var mu sync.Mutex
	var appended []openaiRealtimeInputAudioAppend
	received := make(chan struct{}, 4)

	server := mockOpenAIRealtimeServer(t, func(conn *websocket.Conn) {
		readSessionUpdate(t, conn)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var a openaiRealtimeInputAudioAppend
			if err := json.Unmarshal(msg, &a); err != nil {
				t.Errorf("unmarshal append: %v", err)
				continue
			}
			mu.Lock()
			appended = append(appended, a)
			mu.Unlock()
			received <- struct{}{}
		}
	})
	defer server.Close()

	ch := dialMock(t, server, defaultRealtimeConfig())
	defer ch.Close()

	frames := []pcm.Frame{
		{Samples: make([]int16, 4096), SampleRate: 16000, Channels: 1},
		{Samples: make([]int16, 480), SampleRate: 24000, Channels: 1},
	}
	for _, f := range frames {
		if err := ch.Send(f); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for range frames {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatal("server did not receive audio")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	wantSamples := []int{6144, 480}
	for i, a := range appended {
		if a.Type != "input_audio_buffer.append" {
			t.Errorf("append %d type = %q", i, a.Type)
		}
		raw, err := pcm.Decode(a.Audio)
		if err != nil {
			t.Fatalf("decode append %d: %v", i, err)
		}
		if got := len(raw) / pcm.SampleWidth; got != wantSamples[i] {
			t.Errorf("append %d carries %d samples, want %d", i, got, wantSamples[i])
		}
	}
}

func TestOpenAIRealtimeDialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	endpoint := &provider.EndpointConfig{BaseURL: "ws" + strings.TrimPrefix(server.URL, "http")}
	_, err := NewOpenAIRealtimeDialer(endpoint, "sk-bad").Dial(context.Background(), defaultRealtimeConfig())

	ce, ok := err.(*ChannelError)
	if !ok || ce.Op != "connect" {
		t.Errorf("Dial error = %v, want connect ChannelError", err)
	}
}

func TestOpenAIRealtimeCloseIsIdempotent(t *testing.T) {
	server := mockOpenAIRealtimeServer(t, func(conn *websocket.Conn) {
		readSessionUpdate(t, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	ch := dialMock(t, server, defaultRealtimeConfig())
	ch.Close()
	ch.Close()

	if ev, ok := <-ch.Events(); ok {
		t.Errorf("unexpected event after local close: %+v", ev)
	}
	if err := ch.Send(pcm.Frame{Samples: []int16{0}, SampleRate: 24000, Channels: 1}); err == nil {
		t.Error("Send after Close should fail")
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name     string
		in       []int16
		from, to int
		wantLen  int
	}{
		{"16k to 24k", make([]int16, 160), 16000, 24000, 240},
		{"same rate", make([]int16, 10), 24000, 24000, 10},
		{"empty", nil, 16000, 24000, 0},
		{"48k to 24k", make([]int16, 480), 48000, 24000, 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resample(tt.in, tt.from, tt.to); len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}

	// interpolation stays between neighbours
	out := resample([]int16{0, 300}, 16000, 24000)
	if len(out) != 3 || out[0] != 0 || out[1] < 199 || out[1] > 200 || out[2] != 300 {
		t.Errorf("interpolated = %v, want about [0 200 300]", out)
	}
}
