package episode

import "github.com/myrjola/kastor/internal/errors"

var (
	// ErrInvalidScript is returned when narrative content fails validation. It is fatal at startup.
	ErrInvalidScript = errors.NewSentinel("invalid episode script")
	// ErrUnknownStage is returned when a stage id is not declared by the script.
	ErrUnknownStage = errors.NewSentinel("unknown stage")
	// ErrIllegalAction is returned when an action is not allowed in the current stage. The state is unchanged.
	ErrIllegalAction = errors.NewSentinel("illegal action")
	// ErrCompletionFailed is returned when the chat completer fails or times out. The state is unchanged and the
	// player may retry or skip.
	ErrCompletionFailed = errors.NewSentinel("chat completion failed")
	// ErrNoMoreHints is returned when the hint ladder of the current stage is exhausted.
	ErrNoMoreHints = errors.NewSentinel("no more hints")
)
