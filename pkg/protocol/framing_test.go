package protocol_test

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/omochice/relaychat/pkg/protocol"
)

func TestFrameReader_Coalesced(t *testing.T) {
	var stream []byte
	stream = protocol.AppendFrame(stream, protocol.EncodeString("one"))
	stream = protocol.AppendFrame(stream, protocol.EncodeString("two"))
	stream = protocol.AppendFrame(stream, protocol.EncodeHeaderOnly(protocol.HeaderUpdate))

	r := protocol.NewFrameReader(bytes.NewReader(stream), 0)

	for _, want := range []string{"String|one", "String|two", "Update"} {
		frame, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, string(frame))
	}
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameReader_Segmented(t *testing.T) {
	var stream []byte
	stream = protocol.AppendFrame(stream, protocol.EncodeStringWithMetadata("hi", "alice", "bob"))
	stream = protocol.AppendFrame(stream, protocol.EncodeString("again"))

	r := protocol.NewFrameReader(iotest.OneByteReader(bytes.NewReader(stream)), 0)

	frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "String|hi&alice&bob", string(frame))

	frame, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "String|again", string(frame))
}

func TestFrameReader_TooLargeIsSkipped(t *testing.T) {
	big := protocol.EncodeString(string(bytes.Repeat([]byte("x"), 300)))
	var stream []byte
	stream = protocol.AppendFrame(stream, big)
	stream = protocol.AppendFrame(stream, protocol.EncodeString("next"))

	r := protocol.NewFrameReader(bytes.NewReader(stream), protocol.HandshakeMaxFrameSize)

	_, err := r.ReadFrame()
	require.ErrorIs(t, err, protocol.ErrFrameTooLarge)

	frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "String|next", string(frame))
}

func TestFrameReader_TruncatedFrame(t *testing.T) {
	stream := protocol.AppendFrame(nil, protocol.EncodeString("cut short"))
	r := protocol.NewFrameReader(bytes.NewReader(stream[:len(stream)-3]), 0)

	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFrameReader_TruncatedLength(t *testing.T) {
	// 0x80 announces a continuation byte that never arrives.
	r := protocol.NewFrameReader(bytes.NewReader([]byte{0x80}), 0)

	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteFrame(&buf, []byte("String|x")))

	assert.Equal(t, append([]byte{8}, "String|x"...), buf.Bytes())
}

func TestFrameBoundaries_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frames := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 512), 1, 16).Draw(t, "frames")
		var stream []byte
		for _, f := range frames {
			stream = protocol.AppendFrame(stream, f)
		}

		// Re-chunk the stream at arbitrary points to mimic TCP segmentation.
		var chunks [][]byte
		rest := stream
		for len(rest) > 0 {
			n := rapid.IntRange(1, len(rest)).Draw(t, "chunk")
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		r := protocol.NewFrameReader(&chunkReader{chunks: chunks}, 1024)
		for i, want := range frames {
			got, err := r.ReadFrame()
			if err != nil {
				t.Fatalf("frame %d: %v", i, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("frame %d = %x, want %x", i, got, want)
			}
		}
		if _, err := r.ReadFrame(); err != io.EOF {
			t.Fatalf("trailing read error = %v, want EOF", err)
		}
	})
}

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}
