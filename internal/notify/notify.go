package notify

import (
	"fmt"
	"log"
	"os/exec"
)

// Notifier surfaces session events to the user. A lost chunk is an advisory:
// recording keeps going and the transcript just has a gap.
type Notifier interface {
	RecordingStarted()
	RecordingStopped()
	ChunkLost(index uint64, err error)
	SessionError(msg string)
}

// Desktop sends notifications through notify-send.
type Desktop struct{}

func (Desktop) RecordingStarted() {
	send("Meetscribe: Recording Started", "", false)
}

func (Desktop) RecordingStopped() {
	send("Meetscribe: Recording Stopped", "", false)
}

func (Desktop) ChunkLost(index uint64, err error) {
	send("Meetscribe: Transcript Gap", fmt.Sprintf("chunk %d lost: %v", index, err), false)
}

func (Desktop) SessionError(msg string) {
	send("Meetscribe: Session Error", msg, true)
}

func send(title, body string, critical bool) {
	args := []string{"-a", "Meetscribe"}
	if critical {
		args = append(args, "-u", "critical")
	}
	args = append(args, title)
	if body != "" {
		args = append(args, body)
	}
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

// Log writes notifications to the daemon log instead of the desktop.
type Log struct{}

func (Log) RecordingStarted() { log.Printf("notify: recording started") }
func (Log) RecordingStopped() { log.Printf("notify: recording stopped") }
func (Log) ChunkLost(index uint64, err error) {
	log.Printf("notify: chunk %d lost: %v", index, err)
}
func (Log) SessionError(msg string) { log.Printf("notify: session error: %s", msg) }

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted()                  {}
func (Nop) RecordingStopped()                  {}
func (Nop) ChunkLost(index uint64, err error)  {}
func (Nop) SessionError(msg string)            {}

// ForType returns the notifier for a configured notification type.
func ForType(enabled bool, typ string) Notifier {
	if !enabled {
		return Nop{}
	}
	switch typ {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}
