package primitive

import (
	"errors"
	"fmt"
)

// The codec distinguishes three kinds of local failure. A fourth outcome,
// "not enough buffered bytes yet", is deliberately not an error at all: the
// frame and segment decoders report it as an explicit incomplete result so
// transports can simply read more and retry.
var (
	// ErrMalformed marks bytes that cannot be a valid protocol encoding:
	// bad lengths, unknown opcodes or versions, truncated fields. Once a
	// stream produces a malformed frame its byte alignment is suspect.
	ErrMalformed = errors.New("malformed protocol bytes")

	// ErrIntegrity marks a checksum or compressed-length mismatch. The
	// connection cannot be resynchronized and must be replaced.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrConstraint marks a caller-supplied value that exceeds an
	// encodable bound, such as a string longer than a [short] length
	// prefix can carry. No bytes are produced.
	ErrConstraint = errors.New("value outside encodable range")
)

// Malformedf builds an ErrMalformed with context. errors.Is(err,
// ErrMalformed) holds for the result.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMalformed)
}

// Integrityf builds an ErrIntegrity with context.
func Integrityf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrIntegrity)
}

// Constraintf builds an ErrConstraint with context.
func Constraintf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConstraint)
}
