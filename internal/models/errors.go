package models

import "errors"

var (
	ErrEmptyContent   = errors.New("message content is empty")
	ErrInvalidTarget  = errors.New("message must target exactly one of channel or recipient")
	ErrMissingAuthor  = errors.New("message author is required")
	ErrContentTooLong = errors.New("message content is too long")
	ErrInvalidView    = errors.New("invalid view")
)
