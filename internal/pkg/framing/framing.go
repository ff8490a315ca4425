// Package framing implements the length-prefixed framing shared by World and the
// carrier: each message body is preceded by its length as a protobuf varint of at
// most 32 bits.
package framing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"fulfillment/internal/pkg/errs"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxPrefixLen is the longest varint encoding of a 32-bit length.
const maxPrefixLen = 5

// Marshaler is implemented by every wire message.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// AppendFrame appends the prefix and body to dst.
func AppendFrame(dst, body []byte) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(body)))
	return append(dst, body...)
}

// Encode marshals m and returns the complete frame.
func Encode(m Marshaler) ([]byte, error) {
	body, err := m.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", m, err)
	}
	return AppendFrame(make([]byte, 0, len(body)+maxPrefixLen), body), nil
}

// WriteFrame writes one frame in a single Write call.
func WriteFrame(w io.Writer, body []byte) error {
	_, err := w.Write(AppendFrame(nil, body))
	return err
}

// Reader reads frames from a byte stream.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame blocks until one complete frame is read and returns its body.
//
// Every failure is an *errs.FramingError. A stream that ends before the first
// prefix byte wraps io.EOF so callers can tell an orderly close apart.
func (fr *Reader) ReadFrame() ([]byte, error) {
	size, err := fr.readPrefix()
	if err != nil {
		return nil, err
	}

	body := make([]byte, size)
	if _, err = io.ReadFull(fr.r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, errs.NewFramingErrorWithCause(fmt.Sprintf("truncated body of %d bytes", size), err)
	}
	return body, nil
}

func (fr *Reader) readPrefix() (uint32, error) {
	var prefix [maxPrefixLen]byte
	for i := range maxPrefixLen {
		b, err := fr.r.ReadByte()
		if err != nil {
			if i == 0 && errors.Is(err, io.EOF) {
				return 0, errs.NewFramingErrorWithCause("stream closed", io.EOF)
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, errs.NewFramingErrorWithCause("truncated length prefix", err)
		}
		prefix[i] = b
		if b < 0x80 {
			v, n := protowire.ConsumeVarint(prefix[:i+1])
			if n < 0 {
				return 0, errs.NewFramingErrorWithCause("bad length prefix", protowire.ParseError(n))
			}
			if v > math.MaxUint32 {
				return 0, errs.NewFramingError(fmt.Sprintf("declared length %d exceeds 32 bits", v))
			}
			if v == 0 {
				return 0, errs.NewFramingError("declared length is zero")
			}
			return uint32(v), nil
		}
	}
	return 0, errs.NewFramingError("length prefix longer than 32 bits")
}
