package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program hyprlive shells out to.
type Tool struct {
	Name     string
	Purpose  string
	Required bool
	Check    func() Status
}

// Tools lists every external program, required ones first.
func Tools() []Tool {
	return []Tool{
		{Name: "pw-record", Purpose: "microphone capture", Required: true, Check: CheckPwRecord},
		{Name: "pw-cli", Purpose: "PipeWire availability check", Required: true, Check: CheckPwCli},
		{Name: "pw-play", Purpose: "voice playback", Required: false, Check: CheckPwPlay},
		{Name: "notify-send", Purpose: "desktop notifications", Required: false, Check: CheckNotifySend},
		{Name: "wl-copy", Purpose: "transcript copying", Required: false, Check: CheckWlCopy},
	}
}

// CheckPwRecord checks if pw-record is installed and returns its status
func CheckPwRecord() Status {
	return check("pw-record", "--version")
}

// CheckPwPlay checks if pw-play is installed. It ships with pw-record, but
// some distros split the tools.
func CheckPwPlay() Status {
	return check("pw-play", "--version")
}

func CheckPwCli() Status {
	return check("pw-cli", "--version")
}

// CheckNotifySend checks if notify-send (libnotify) is installed
func CheckNotifySend() Status {
	return check("notify-send", "--version")
}

func CheckWlCopy() Status {
	return check("wl-copy", "--version")
}

func check(name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	// first non-empty line of the version output
	output, err := exec.Command(path, versionFlag).Output()
	if err == nil {
		status.Version = firstLine(string(output))
	}

	return status
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
