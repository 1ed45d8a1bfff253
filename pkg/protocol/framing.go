package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Stream framing: varint(len(frame)) || frame.

const (
	// DefaultMaxFrameSize bounds a steady-state frame.
	DefaultMaxFrameSize = 1024
	// HandshakeMaxFrameSize bounds the username frame sent on join.
	HandshakeMaxFrameSize = 256

	maxVarintLen = 10
)

// AppendFrame appends the length-prefixed form of frame to dst.
func AppendFrame(dst, frame []byte) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(frame)))
	return append(dst, frame...)
}

// WriteFrame writes frame with its length prefix in a single Write call.
func WriteFrame(w io.Writer, frame []byte) error {
	buf := AppendFrame(make([]byte, 0, len(frame)+protowire.SizeVarint(uint64(len(frame)))), frame)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// FrameReader splits a byte stream into frames, buffering partial reads and
// separating coalesced ones. It is not safe for concurrent use.
type FrameReader struct {
	br  *bufio.Reader
	max int
}

// NewFrameReader reads frames of at most max bytes from r.
// A max of zero or less selects DefaultMaxFrameSize.
func NewFrameReader(r io.Reader, max int) *FrameReader {
	if max <= 0 {
		max = DefaultMaxFrameSize
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameReader{br: br, max: max}
}

// SetMax changes the frame size limit for subsequent reads.
func (r *FrameReader) SetMax(max int) {
	if max > 0 {
		r.max = max
	}
}

// ReadFrame returns the next complete frame. Oversized frames are consumed
// from the stream and reported as ErrFrameTooLarge, so the next call resumes
// at a frame boundary. io.EOF is returned only on a clean boundary.
func (r *FrameReader) ReadFrame() ([]byte, error) {
	size, err := r.readSize()
	if err != nil {
		return nil, err
	}
	if size > uint64(r.max) {
		if err := r.discard(size); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, size, r.max)
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(r.br, frame); err != nil {
		return nil, unexpected(err)
	}
	return frame, nil
}

func (r *FrameReader) readSize() (uint64, error) {
	for need := 1; need <= maxVarintLen; need++ {
		head, err := r.br.Peek(need)
		if err != nil {
			if len(head) > 0 {
				return 0, unexpected(err)
			}
			return 0, err
		}
		v, n := protowire.ConsumeVarint(head)
		if n > 0 {
			_, _ = r.br.Discard(n)
			return v, nil
		}
		if perr := protowire.ParseError(n); !errors.Is(perr, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("frame length: %w", perr)
		}
	}
	return 0, errors.New("frame length: varint too long")
}

func (r *FrameReader) discard(size uint64) error {
	for size > 0 {
		chunk := size
		if chunk > 1<<30 {
			chunk = 1 << 30
		}
		n, err := r.br.Discard(int(chunk))
		size -= uint64(n)
		if err != nil {
			return unexpected(err)
		}
	}
	return nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
