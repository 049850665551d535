package domain

import "errors"

// Validation errors. These are surfaced to the invoking user; no state is
// mutated and no platform call is issued when one is returned.
var (
	ErrAlreadyStarred = errors.New("user already starred this message")
	ErrOwnMessage     = errors.New("cannot star your own message")
	ErrBoardChannel   = errors.New("cannot star messages in the starboard channel")
	ErrTooOld         = errors.New("message is older than the star window")
	ErrTooLong        = errors.New("rendered message exceeds the length limit")
)

// Lookup and configuration errors.
var (
	ErrMessageNotFound    = errors.New("message not found")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrBoardNotConfigured = errors.New("starboard channel not configured")
	ErrBoardExists        = errors.New("starboard channel already configured")
	ErrForbidden          = errors.New("missing permissions")
	ErrBadChannelName     = errors.New("invalid channel name")
)
