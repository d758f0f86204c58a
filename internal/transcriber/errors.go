package transcriber

import "errors"

// Kind classifies an adapter failure. The pipeline treats every kind
// identically at the chunk level (mark Failed, release, report); the kind is
// surfaced so the host can distinguish quota exhaustion from flaky networks.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindQuota        Kind = "quota"
	KindInvalidAudio Kind = "invalid_audio"
	KindProvider     Kind = "provider"
)

// Error wraps a provider failure with its classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return string(e.Kind) + " error"
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the classification from an adapter error, defaulting to
// KindProvider for unclassified failures.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindProvider
}
