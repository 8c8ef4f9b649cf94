// Package failure defines the kind-tagged error used across disklayer.
//
// Every error that reaches the CLI carries one of a small set of kinds so
// that callers (and operators reading the output) can tell a failed external
// command from a malformed layout or a device that never showed up.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure
type Kind int

const (
	// Generic is an unrecoverable condition such as a failed search
	Generic Kind = iota
	// Command is a nonzero exit status or a spawn failure
	Command
	// Filesystem is an I/O failure on a path
	Filesystem
	// Invalid is a malformed or missing configuration value
	Invalid
	// Resolution means a device identity could not be found
	Resolution
	// Timeout means a settle poll gave up waiting
	Timeout
)

var kindTags = map[Kind]string{
	Generic:    "GENERIC",
	Command:    "CMD",
	Filesystem: "FILESYSTEM",
	Invalid:    "INVALID",
	Resolution: "RESOLVE",
	Timeout:    "TIMEOUT",
}

// String returns the short tag printed in front of error messages
func (k Kind) String() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}
	return "UNKNOWN"
}

// Error is a kind-tagged error. Subject names what failed: a command, a
// path, a config field or a device.
type Error struct {
	Kind    Kind
	Subject string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Subject == "" && e.Err == nil:
		return fmt.Sprintf("(%s)", e.Kind)
	case e.Subject == "":
		return fmt.Sprintf("(%s) %v", e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("(%s) %s", e.Kind, e.Subject)
	}
	return fmt.Sprintf("(%s) %s => %v", e.Kind, e.Subject, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error
func New(kind Kind, subject string, err error) error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// Commandf reports a failed external command
func Commandf(name, format string, args ...interface{}) error {
	return &Error{Kind: Command, Subject: name, Err: fmt.Errorf(format, args...)}
}

// Path reports a filesystem I/O failure
func Path(path string, err error) error {
	return &Error{Kind: Filesystem, Subject: path, Err: err}
}

// InvalidValue reports a missing or malformed configuration field
func InvalidValue(field string, reason string) error {
	return &Error{Kind: Invalid, Subject: field, Err: errors.New(reason)}
}

// Genericf reports an unrecoverable condition
func Genericf(format string, args ...interface{}) error {
	return &Error{Kind: Generic, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first tagged error in err's chain.
// Untagged errors are Generic.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Generic
}

// IsKind reports whether any tagged error in err's chain has the given kind
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var fe *Error
		if !errors.As(err, &fe) {
			return false
		}
		if fe.Kind == kind {
			return true
		}
		err = fe.Err
	}
	return false
}
