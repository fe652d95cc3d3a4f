package sync

import (
	"errors"
	"fmt"
)

// Reasons a mutation is skipped without contacting the remote store.
// Mutations swallow these (they return nil) and log them at debug level.
var (
	ErrAuthRequired = errors.New("no active user")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found in snapshot")
)

// CommandError is returned when a remote command fails. The snapshot is
// left as the last successful sync delivered it.
type CommandError struct {
	// Op is the remote operation: "subscribe", "append", "update" or "remove".
	Op string

	// Path is the document the command addressed.
	Path string

	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError reports whether err (or any error in its chain) is a
// CommandError.
func IsCommandError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}

// DecodeError describes a part of a remote payload that could not be
// turned into a Task or Subtask.
type DecodeError struct {
	// Key locates the offending entry, e.g. "<taskID>" or "<taskID>/subtasks/2".
	Key    string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return "decoding tasks: " + e.Reason
	}
	return fmt.Sprintf("decoding task %s: %s", e.Key, e.Reason)
}
