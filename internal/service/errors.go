package service

import "errors"

var (
	// ErrStageMismatch means the operation belongs to a different stage than the session is at.
	ErrStageMismatch = errors.New("operation not allowed at the current stage")
	ErrUnknownIdea   = errors.New("idea not found in the generated ideas")
	ErrUnknownHook   = errors.New("hook not found in the generated hooks")
	ErrHookNotPicked = errors.New("hook was not among the analyzed hooks")
	ErrUnknownChoice = errors.New("sentence or variation not found in the generated script")
	ErrInvalidInput  = errors.New("invalid input")
)
