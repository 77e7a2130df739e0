package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

const minBubbleWidth = 20

// RenderTranscript draws items as chat bubbles: the user on the right, the
// model on the left. Open items get a trailing ellipsis.
func RenderTranscript(items []transcript.Item, width int) string {
	if len(items) == 0 {
		return StyleSubtle.Render("Say something to start the conversation.")
	}
	if width <= 0 {
		width = 80
	}
	bubbleWidth := max(width*3/4, minBubbleWidth)

	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, renderBubble(item, bubbleWidth, width))
	}
	return strings.Join(blocks, "\n")
}

func renderBubble(item transcript.Item, bubbleWidth, width int) string {
	text := item.Text
	if item.Open {
		text += " …"
	}

	name, style, align := StyleModelName.Render("Model"), StyleModelBubble, lipgloss.Left
	if item.Role == transcript.RoleUser {
		name, style, align = StyleUserName.Render("You"), StyleUserBubble, lipgloss.Right
	}

	// Width covers text and padding; the border is drawn outside it
	inner := max(min(lipgloss.Width(text), bubbleWidth-style.GetHorizontalFrameSize()), 1)
	body := style.Width(inner + style.GetHorizontalPadding()).Render(text)
	block := lipgloss.JoinVertical(align, name, body)
	return lipgloss.PlaceHorizontal(width, align, block)
}
