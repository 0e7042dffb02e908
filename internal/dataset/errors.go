package dataset

import "errors"

var (
	// ErrMissingColumn marks a lookup of a column the frame does not carry.
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptyDataset is returned when a stage is left with zero rows and
	// downstream stages could not produce meaningful output.
	ErrEmptyDataset = errors.New("empty dataset")
)
