package notify

import (
	"log"
	"os/exec"
)

type Notifier interface {
	Send(msg Message)
	Error(msg string)
}

// New returns the notifier for a notifications.type value.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

type Desktop struct{}

func (Desktop) Send(msg Message) {
	cmd := exec.Command("notify-send", desktopArgs(msg)...)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

func (d Desktop) Error(msg string) {
	d.Send(Message{Title: "Hyprlive Error", Body: msg, IsError: true})
}

func desktopArgs(msg Message) []string {
	args := []string{"-a", "Hyprlive"}
	if msg.IsError {
		args = append(args, "-u", "critical")
	}
	args = append(args, msg.Title)
	if msg.Body != "" {
		args = append(args, msg.Body)
	}
	return args
}

// Log writes notifications to the daemon log instead of the desktop.
type Log struct{}

func (Log) Send(msg Message) {
	if msg.IsError {
		log.Printf("Notification [error]: %s: %s", msg.Title, msg.Body)
		return
	}
	log.Printf("Notification: %s: %s", msg.Title, msg.Body)
}

func (l Log) Error(msg string) {
	l.Send(Message{Title: "Hyprlive Error", Body: msg, IsError: true})
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Send(msg Message) {}
func (Nop) Error(msg string) {}
