package collection

import "errors"

// Validation errors are reported before any store mutation.
var (
	ErrValidation = errors.New("validation failed")
	ErrEmptySlug  = errors.New("title does not produce a usable slug")
)

// Conflict errors require the caller to change input or refresh state.
var (
	ErrDuplicateTitle  = errors.New("a video with this title already exists")
	ErrReorderConflict = errors.New("reorder does not match current collection order")
	ErrLimitExceeded   = errors.New("video limit reached")
)

// ErrNotFound is returned when an entry does not exist in the owner's collection.
var ErrNotFound = errors.New("video not found")

// ErrStore wraps failures of the backing store. Callers may retry.
var ErrStore = errors.New("store unavailable")

// IsValidation reports whether err belongs to the validation class
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrEmptySlug)
}

// IsConflict reports whether err belongs to the conflict class
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateTitle) ||
		errors.Is(err, ErrReorderConflict) ||
		errors.Is(err, ErrLimitExceeded)
}

// ErrThumbnailUnavailable is returned when an explicit thumbnail refresh cannot fetch an image
var ErrThumbnailUnavailable = errors.New("thumbnail unavailable")
