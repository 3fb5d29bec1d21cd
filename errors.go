package servoom

import (
	"errors"
	"fmt"
)

// Error kinds returned by Decode. All wrap one of these sentinels so callers
// can discriminate with errors.Is; parameterized kinds carry their detail in
// the wrapped message, matching the %w-wrapped-sentinel convention the
// teacher library uses for its own validation errors (mux.ErrMuxValidation).
var (
	// ErrTruncatedHeader means the declared payload length exceeds the
	// bytes actually available.
	ErrTruncatedHeader = errors.New("servoom: truncated header")

	// ErrUnsupportedFormat means the format tag is not one of
	// {9, 17, 18, 26, 31, 42, 43}.
	ErrUnsupportedFormat = errors.New("servoom: unsupported format")

	// ErrCryptoAlignment means AES-CBC input was not a multiple of 16 bytes.
	ErrCryptoAlignment = errors.New("servoom: AES input not block-aligned")

	// ErrLzoLength means LZO1X decompression produced a different length
	// than the declared expected output size.
	ErrLzoLength = errors.New("servoom: LZO output length mismatch")

	// ErrZstdDecodeFailed means the Zstd bitstream was malformed.
	ErrZstdDecodeFailed = errors.New("servoom: zstd decode failed")

	// ErrMalformedTree means a format-26 block tree exceeded its recursion
	// depth or contained a block-mode byte outside {0, 1, 2}.
	ErrMalformedTree = errors.New("servoom: malformed tile tree")

	// ErrBitstreamOverrun means the bit reader advanced past the end of
	// the plaintext by more than the one-byte trailing-padding tolerance.
	ErrBitstreamOverrun = errors.New("servoom: bitstream overrun")

	// ErrTruncatedFrame means a frame header declared a size exceeding the
	// remaining plaintext by more than one byte.
	ErrTruncatedFrame = errors.New("servoom: truncated frame")

	// ErrDimensionMismatch means embedded images did not share dimensions.
	ErrDimensionMismatch = errors.New("servoom: frame dimension mismatch")

	// ErrEmbeddedDecode means an embedded JPEG/GIF/WebP payload failed to
	// decode with its underlying standard-library or ecosystem decoder.
	ErrEmbeddedDecode = errors.New("servoom: embedded image decode failed")

	// ErrInvariantViolation means a postcondition the decoder itself is
	// responsible for (e.g. frame buffer length) was not met.
	ErrInvariantViolation = errors.New("servoom: invariant violation")
)

// unsupportedFormat builds an ErrUnsupportedFormat with the offending tag.
func unsupportedFormat(tag byte) error {
	return fmt.Errorf("%w: tag %d", ErrUnsupportedFormat, tag)
}

func zstdDecodeFailed(detail error) error {
	return fmt.Errorf("%w: %v", ErrZstdDecodeFailed, detail)
}

func embeddedDecodeFailed(detail error) error {
	return fmt.Errorf("%w: %v", ErrEmbeddedDecode, detail)
}

func invariantViolation(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, detail)
}
