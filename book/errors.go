package book

import "errors"

// Decode failures and unsupported versions are deliberately distinct: the
// first means the file is damaged, the second that it was produced by a newer
// tool. Callers are expected to match with errors.Is. Storage failures wrap
// the underlying I/O error and everything else is a plain formatted error.
var (
	// ErrDecode reports structurally malformed book data: bad magic,
	// truncated sections, offset inconsistencies or invalid UTF-8.
	ErrDecode = errors.New("malformed book data")

	// ErrUnsupported reports a recognized container whose version this
	// decoder does not handle.
	ErrUnsupported = errors.New("unsupported book version")

	// ErrTooLarge reports input exceeding the configured decode limits. This
	// is a normal refusal, not a sign of corruption.
	ErrTooLarge = errors.New("book data exceeds configured limits")
)
