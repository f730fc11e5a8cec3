package pipeline

import "errors"

var (
	// ErrUnreadableInput means the report could not be read or decoded at all.
	// It is the only error Parse returns.
	ErrUnreadableInput = errors.New("unreadable report input")

	// ErrFieldNotFound and ErrNormalizationRejected stay inside the parser;
	// the field falls back to its placeholder.
	ErrFieldNotFound         = errors.New("field not found")
	ErrNormalizationRejected = errors.New("normalization rejected")
)
