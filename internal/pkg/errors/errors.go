package errors

import "errors"

var (
	ErrInvalid  = errors.New("invalid")
	ErrInternal = errors.New("internal")
	// ErrUpstream marks any failure of an external service call (embedding, chat, index, page fetch).
	ErrUpstream = errors.New("upstream error")
	// ErrBuild marks a knowledge base build that stopped before all staged chunks were stored.
	ErrBuild    = errors.New("knowledge base build failed")
	ErrNotReady = errors.New("engine not ready")
)

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
