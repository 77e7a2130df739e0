package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprlive/internal/config"
	"github.com/leonardotrapani/hyprlive/internal/language"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// Run walks through the live settings one step at a time and returns the
// edited config. Nothing is written to disk here.
func Run(existingConfig *config.Config) (*ConfigureResult, error) {
	if existingConfig == nil {
		return nil, fmt.Errorf("config is required")
	}

	clearScreen()
	fmt.Println(Logo())
	fmt.Println()
	if !hasUserChanges(existingConfig) {
		fmt.Println(StyleMuted.Render("Let's set up your voice assistant. Press esc at any time to cancel."))
		fmt.Println()
	}

	a := answersFrom(existingConfig)
	steps := []func(*config.Config, *answers) error{
		askProvider,
		askAPIKey,
		askModelAndVoice,
		askLanguage,
		askBehaviour,
		askNotifications,
	}
	for _, step := range steps {
		if err := step(existingConfig, &a); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return &ConfigureResult{Cancelled: true}, nil
			}
			return &ConfigureResult{Cancelled: true}, err
		}
	}

	cfg := *existingConfig
	cfg.Providers = make(map[string]config.ProviderConfig, len(existingConfig.Providers))
	for k, v := range existingConfig.Providers {
		cfg.Providers[k] = v
	}
	a.apply(&cfg)

	confirmed, err := showSummary(&cfg)
	if err != nil || !confirmed {
		return &ConfigureResult{Cancelled: true}, nil
	}
	return &ConfigureResult{Config: &cfg}, nil
}

func askProvider(cfg *config.Config, a *answers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Voice Service").
				Description("Which live speech model should you talk to?").
				Options(providerOptions(cfg)...).
				Value(&a.Provider),
		),
	).WithTheme(getTheme()).Run()
}

func askAPIKey(cfg *config.Config, a *answers) error {
	existing := cfg.Providers[a.Provider].APIKey

	desc := fmt.Sprintf("Get one at %s", providerKeyURLs[a.Provider])
	if existing != "" {
		desc = fmt.Sprintf("Current key %s - leave empty to keep it", maskAPIKey(existing))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(getProviderDisplayName(a.Provider)+" API Key").
				Description(desc).
				EchoMode(huh.EchoModePassword).
				Validate(validateAPIKeyFor(a.Provider, existing)).
				Value(&a.APIKey),
		),
	).WithTheme(getTheme()).Run()
}

func askModelAndVoice(cfg *config.Config, a *answers) error {
	models := modelOptions(a.Provider)
	voices := voiceOptions(a.Provider)
	if !containsOption(models, a.Model) && len(models) > 0 {
		a.Model = models[0].Value
	}
	if !containsOption(voices, a.Voice) && len(voices) > 0 {
		a.Voice = voices[0].Value
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(models...).
				Value(&a.Model),
			huh.NewSelect[string]().
				Title("Voice").
				Description("The voice the model answers with").
				Options(voices...).
				Value(&a.Voice),
		),
	).WithTheme(getTheme()).Run()
}

func askLanguage(cfg *config.Config, a *answers) error {
	options := languageOptions(a.Provider, a.Model)
	if !containsOption(options, a.Language) {
		a.Language = ""
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Description("Language the model should speak. Auto-detect follows you.").
				Options(options...).
				Filtering(true).
				Value(&a.Language),
		),
	).WithTheme(getTheme()).Run()
}

func askBehaviour(cfg *config.Config, a *answers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("System Instruction").
				Description("Optional. Tells the model who it is and how to answer.").
				CharLimit(2000).
				Value(&a.SystemInstruction),
			huh.NewConfirm().
				Title("Show live transcript?").
				Description("Transcribe both sides of the conversation").
				Affirmative("Yes").
				Negative("No").
				Value(&a.Transcription),
			huh.NewConfirm().
				Title("Play the model's voice?").
				Description("Turn off for a text-only transcript").
				Affirmative("Yes").
				Negative("No").
				Value(&a.Playback),
		),
	).WithTheme(getTheme()).Run()
}

func askNotifications(cfg *config.Config, a *answers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notifications").
				Description("How should hyprlive tell you the conversation state?").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Daemon log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&a.NotificationType),
		),
	).WithTheme(getTheme()).Run()
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleBox.Render(summary(cfg)))
	fmt.Println()

	confirmed := true
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Save").
				Negative("Discard").
				Value(&confirmed),
		),
	).WithTheme(getTheme()).Run()
	return confirmed, err
}

// summary renders the settings a conversation will use.
func summary(cfg *config.Config) string {
	row := func(label, value string) string {
		return StyleLabel.Render(fmt.Sprintf("%-14s", label)) + " " + value
	}

	key := StyleWarning.Render("not set")
	if k := cfg.APIKey(); k != "" {
		key = maskAPIKey(k)
	}
	instruction := StyleMuted.Render("none")
	if s := strings.TrimSpace(cfg.Live.SystemInstruction); s != "" {
		instruction = truncate(s, 40)
	}
	notifications := "off"
	if cfg.Notifications.Enabled {
		notifications = cfg.Notifications.Type
	}

	lines := []string{
		StyleHeader.Render("Summary"),
		row("Service", getProviderDisplayName(cfg.Live.Provider)),
		row("API key", key),
		row("Model", cfg.Live.Model),
		row("Voice", cfg.Live.Voice),
		row("Language", language.Label(cfg.Live.Language)),
		row("Instruction", instruction),
		row("Transcript", onOff(cfg.Live.InputTranscription || cfg.Live.OutputTranscription)),
		row("Playback", onOff(cfg.Playback.Enabled)),
		row("Notifications", notifications),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func containsOption(options []huh.Option[string], value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
