package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/hyprlive/internal/bus"
	"github.com/leonardotrapani/hyprlive/internal/clipboard"
	"github.com/leonardotrapani/hyprlive/internal/config"
	"github.com/leonardotrapani/hyprlive/internal/daemon"
	"github.com/leonardotrapani/hyprlive/internal/deps"
	"github.com/leonardotrapani/hyprlive/internal/language"
	"github.com/leonardotrapani/hyprlive/internal/provider"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
	"github.com/leonardotrapani/hyprlive/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hyprlive",
	Short: "Talk to a live speech model from your Wayland desktop",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		stopCmd(),
		statusCmd(),
		transcriptCmd(),
		quitCmd(),
		versionCmd(),
		configureCmd(),
		talkCmd(),
		doctorCmd(),
		modelCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return daemon.New(m, nil, nil).Run()
		},
	}
}

// busCmd builds a command that sends one byte to the daemon and prints the reply.
func busCmd(use, short string, code byte, what string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(code)
			if err != nil {
				return fmt.Errorf("failed to %s: %w (is 'hyprlive serve' running?)", what, err)
			}
			fmt.Println(resp)
			if strings.HasPrefix(resp, "ERR") {
				return errors.New(strings.TrimPrefix(resp, "ERR "))
			}
			return nil
		},
	}
}

func toggleCmd() *cobra.Command {
	return busCmd("toggle", "Start or end a conversation", bus.CmdToggle, "toggle conversation")
}

func stopCmd() *cobra.Command {
	return busCmd("stop", "End the current conversation", bus.CmdStop, "stop conversation")
}

func statusCmd() *cobra.Command {
	return busCmd("status", "Get current conversation status", bus.CmdStatus, "get status")
}

func versionCmd() *cobra.Command {
	return busCmd("version", "Get protocol version", bus.CmdVersion, "get version")
}

func quitCmd() *cobra.Command {
	return busCmd("quit", "Stop the daemon", bus.CmdQuit, "stop daemon")
}

func transcriptCmd() *cobra.Command {
	var raw, copyText bool

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Show the transcript of the current or last conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdTranscript)
			if err != nil {
				return fmt.Errorf("failed to get transcript: %w", err)
			}
			payload, ok := strings.CutPrefix(resp, "TRANSCRIPT ")
			if !ok {
				return fmt.Errorf("unexpected reply: %s", resp)
			}
			if raw {
				fmt.Println(payload)
				return nil
			}

			var items []transcript.Item
			if err := json.Unmarshal([]byte(payload), &items); err != nil {
				return fmt.Errorf("failed to decode transcript: %w", err)
			}
			if copyText {
				if err := clipboard.Copy(cmd.Context(), transcript.PlainText(items), clipboard.DefaultTimeout); err != nil {
					return fmt.Errorf("failed to copy transcript: %w", err)
				}
				fmt.Println("Transcript copied to clipboard")
				return nil
			}
			fmt.Println(tui.RenderTranscript(items, 80))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "print the transcript as JSON")
	cmd.Flags().BoolVar(&copyText, "copy", false, "copy the transcript to the Wayland clipboard")

	return cmd
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for hyprlive.
This will guide you through setting up:
- The voice service (Gemini Live or OpenAI Realtime) and its API key
- Model, voice and language
- System instruction, transcript and playback
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()

	showNextSteps()

	return nil
}

func showNextSteps() {
	serviceRunning := false
	if _, err := exec.Command("systemctl", "--user", "is-active", "--quiet", "hyprlive.service").CombinedOutput(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	if !serviceRunning {
		fmt.Println("1. Start the service: systemctl --user start hyprlive.service")
	} else {
		fmt.Println("1. A running daemon picks up the new settings on the next conversation")
	}
	fmt.Println("2. Bind 'hyprlive toggle' to a key, or try it now with 'hyprlive talk'")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

func talkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "talk",
		Short: "Have a conversation in this terminal",
		Long: `Runs one conversation in the foreground and shows the live transcript.
Press ctrl+c or q to end it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTalk(cmd)
		},
	}
}

func runTalk(cmd *cobra.Command) error {
	// the daemon owns the microphone while it is in a conversation
	if resp, err := bus.SendCommand(bus.CmdStatus); err == nil && !strings.Contains(resp, "status=idle") {
		return fmt.Errorf("the daemon is busy (%s); run 'hyprlive stop' first", resp)
	}

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w (run 'hyprlive configure')", err)
	}

	// keep log output away from the terminal UI
	if logPath, err := talkLogPath(); err == nil {
		if f, err := tea.LogToFile(logPath, "talk"); err == nil {
			defer f.Close()
		}
	}

	deps, err := daemon.DefaultBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return tui.Talk(deps, daemon.SessionOptions(cfg))
}

func talkLogPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "hyprlive")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "talk.log"), nil
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	missing := 0
	for _, tool := range deps.Tools() {
		status := tool.Check()
		switch {
		case status.Installed:
			line := fmt.Sprintf("  [x] %-12s %s", tool.Name, tui.StyleMuted.Render(status.Path))
			if status.Version != "" {
				line += tui.StyleSubtle.Render(" (" + status.Version + ")")
			}
			fmt.Println(line)
		case tool.Required:
			missing++
			fmt.Printf("  [ ] %-12s %s\n", tool.Name, tui.StyleError.Render("missing - needed for "+tool.Purpose))
		default:
			fmt.Printf("  [ ] %-12s %s\n", tool.Name, tui.StyleWarning.Render("missing - no "+tool.Purpose))
		}
	}

	fmt.Println()
	cfg, err := config.LoadOrDefault()
	if err != nil {
		fmt.Println(tui.StyleError.Render("config: " + err.Error()))
		missing++
	} else if err := cfg.Validate(); err != nil {
		fmt.Println(tui.StyleError.Render("config: " + err.Error()))
		missing++
	} else {
		fmt.Printf("config: %s / %s / %s, language %s\n",
			cfg.Live.Provider, cfg.Live.Model, cfg.Live.Voice, language.Label(cfg.Live.Language))
	}

	if missing > 0 {
		return fmt.Errorf("%d problem(s) found", missing)
	}
	fmt.Println(tui.StyleSuccess.Render("All good."))
	return nil
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect live models and voices",
	}

	cmd.AddCommand(modelListCmd())

	return cmd
}

func modelListCmd() *cobra.Command {
	var providerFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available live models and voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelList(providerFilter)
		},
	}

	cmd.Flags().StringVar(&providerFilter, "provider", "", "filter by provider name")

	return cmd
}

func runModelList(providerFilter string) error {
	providerNames := provider.ListProviders()

	if providerFilter != "" {
		if provider.GetProvider(providerFilter) == nil {
			return fmt.Errorf("unknown provider: %s", providerFilter)
		}
		providerNames = []string{providerFilter}
	}

	for _, providerName := range providerNames {
		p := provider.GetProvider(providerName)
		fmt.Printf("\n%s:\n", providerName)
		for _, m := range p.Models() {
			printModelLine(p, m)
		}
		fmt.Printf("  voices: %s (default %s)\n", strings.Join(p.Voices(), ", "), p.DefaultVoice())
	}

	fmt.Println()
	return nil
}

func printModelLine(p provider.Provider, m provider.Model) {
	prefix := "   "
	if m.ID == p.DefaultModel() {
		prefix = "  *"
	}

	line := fmt.Sprintf("%s %s", prefix, m.ID)
	if m.Description != "" {
		line += fmt.Sprintf(" - %s", m.Description)
	}
	line += fmt.Sprintf(" [in %d Hz, out %d Hz]", p.InputSampleRate(), p.OutputSampleRate())

	fmt.Println(line)
}
