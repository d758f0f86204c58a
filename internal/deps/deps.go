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

// check resolves a binary on PATH and asks it for its version.
func check(name string, versionArgs ...string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	if len(versionArgs) > 0 {
		output, err := exec.Command(path, versionArgs...).Output()
		if err == nil {
			// first line carries the version string
			lines := strings.Split(string(output), "\n")
			if len(lines) > 0 {
				status.Version = strings.TrimSpace(lines[0])
			}
		}
	}

	return status
}

// CheckPwRecord checks the PipeWire capture binary used for audio input.
func CheckPwRecord() Status {
	return check("pw-record", "--version")
}

// CheckPwCli checks pw-cli, needed to inspect sinks for system audio capture.
func CheckPwCli() Status {
	return check("pw-cli", "--version")
}

// CheckNotifySend checks the desktop notification binary. Optional; the
// daemon falls back to log notifications without it.
func CheckNotifySend() Status {
	return check("notify-send", "--version")
}
