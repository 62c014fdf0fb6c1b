package binance

import "errors"

// Sentinel errors matching the error kinds of SPEC_FULL.md §7. Wrap with
// fmt.Errorf("...: %w", ErrX) to attach context while remaining
// errors.Is-compatible.
var (
	// ErrUnsupportedVariant is returned when a Downloader is constructed for
	// an asset or data type outside the implemented set.
	ErrUnsupportedVariant = errors.New("unsupported variant")

	// ErrBucket wraps object-store listing/fetch failures.
	ErrBucket = errors.New("bucket operation failed")

	// ErrChecksumMismatch is returned when a downloaded archive's SHA-256
	// does not match its companion checksum object. The partial download is
	// removed before this error is surfaced.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMalformedArchive is returned when a downloaded zip does not
	// contain exactly one entry.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrParse is returned when a CSV row cannot be decoded into a Row.
	ErrParse = errors.New("parse error")
)
