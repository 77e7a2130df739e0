package main

import "testing"

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "toggle", "stop", "status", "transcript", "quit", "version", "configure", "talk", "doctor", "model"}

	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestModelListUnknownProvider(t *testing.T) {
	if err := runModelList("deepgram"); err == nil {
		t.Error("unknown provider should fail")
	}
	if err := runModelList("gemini"); err != nil {
		t.Errorf("runModelList(gemini) = %v", err)
	}
}

func TestTranscriptFlags(t *testing.T) {
	cmd := transcriptCmd()
	for _, name := range []string{"json", "copy"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("transcript is missing --%s", name)
		}
	}
}
