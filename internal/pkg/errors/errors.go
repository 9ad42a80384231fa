package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal")

	ErrAlreadyShared = errors.New("file already shared")
	ErrLinkFailed    = errors.New("share link failed")
	ErrLinkExpired   = errors.New("share link expired")
	ErrMissingParam  = errors.New("missing parameter")
	ErrNotFolder     = errors.New("not a folder")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
