package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/relaychat/pkg/protocol"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{"string", protocol.EncodeString("hello"), "String|hello"},
		{"empty string", protocol.EncodeString(""), "String|"},
		{"string with metadata", protocol.EncodeStringWithMetadata("hi", "alice", "bob"), "String|hi&alice&bob"},
		{"string with sender only", protocol.EncodeStringWithMetadata("hi", "alice"), "String|hi&alice"},
		{"integer", protocol.EncodeInteger(42), "Integer|42"},
		{"negative integer", protocol.EncodeInteger(-7), "Integer|-7"},
		{"header only", protocol.EncodeHeaderOnly(protocol.HeaderUpdate), "Update"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.got) != tt.want {
				t.Errorf("encoded = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    protocol.Header
		wantErr error
	}{
		{"string", "String|x", protocol.HeaderString, nil},
		{"lower case", "string|x", protocol.HeaderString, nil},
		{"upper case", "STRING|x", protocol.HeaderString, nil},
		{"integer", "Integer|3", protocol.HeaderInteger, nil},
		{"unknown", "Unknown|raw", protocol.HeaderUnknown, nil},
		{"bare header", "update", protocol.HeaderUpdate, nil},
		{"bare string", "String", protocol.HeaderString, nil},
		{"bogus", "Bogus|x", 0, protocol.ErrInvalidHeader},
		{"bare bogus", "Bogus", 0, protocol.ErrInvalidHeader},
		{"empty", "", 0, protocol.ErrInvalidHeader},
		{"header is a prefix", "Strings|x", 0, protocol.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.DecodeHeader([]byte(tt.data))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var de *protocol.DecodeError
				require.True(t, errors.As(err, &de))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name            string
		data            string
		includeMetadata bool
		want            string
		wantErr         error
	}{
		{"plain", "String|hello", false, "hello", nil},
		{"pipe in text", "String|a|b", false, "a|b", nil},
		{"strip metadata", "String|hi&alice&bob", false, "hi", nil},
		{"keep metadata", "String|hi&alice&bob", true, "hi&alice&bob", nil},
		{"bare header", "String", false, "", nil},
		{"integer header", "Integer|1", false, "", protocol.ErrHeaderMismatch},
		{"invalid header", "Nope|1", false, "", protocol.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.DecodeString([]byte(tt.data), tt.includeMetadata)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInteger(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr error
	}{
		{"positive", "Integer|42", 42, nil},
		{"negative", "integer|-5", -5, nil},
		{"zero", "Integer|0", 0, nil},
		{"plus sign", "Integer|+5", 0, protocol.ErrMalformedPayload},
		{"leading space", "Integer| 5", 0, protocol.ErrMalformedPayload},
		{"empty payload", "Integer|", 0, protocol.ErrMalformedPayload},
		{"not a number", "Integer|abc", 0, protocol.ErrMalformedPayload},
		{"bare header", "Integer", 0, protocol.ErrMalformedPayload},
		{"trailing metadata", "Integer|4&x", 0, protocol.ErrMalformedPayload},
		{"string header", "String|42", 0, protocol.ErrHeaderMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.DecodeInteger([]byte(tt.data))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"none", "String|hi", nil},
		{"sender and recipient", "String|hi&alice&bob", []string{"alice", "bob"}},
		{"empty segment", "String|hi&", []string{""}},
		{"bare header", "String", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, protocol.ExtractMetadata([]byte(tt.data)))
		})
	}
}

func TestDecode(t *testing.T) {
	pkt, err := protocol.Decode([]byte("string|hi&alice&bob"))
	require.NoError(t, err)

	assert.Equal(t, protocol.HeaderString, pkt.Header)
	assert.Equal(t, "hi", pkt.Text())
	assert.Equal(t, []string{"alice", "bob"}, pkt.Metadata)
	assert.True(t, pkt.Directed())
	assert.Equal(t, "alice", pkt.Sender())
	assert.Equal(t, "bob", pkt.Recipient())
	assert.Equal(t, "String|hi&alice&bob", string(pkt.Encode()))
}

func TestDecode_UnknownKeepsRawPayload(t *testing.T) {
	pkt, err := protocol.Decode([]byte("Unknown|a&b|c"))
	require.NoError(t, err)

	assert.Equal(t, protocol.HeaderUnknown, pkt.Header)
	assert.Equal(t, []byte("a&b|c"), pkt.Payload)
	assert.Empty(t, pkt.Metadata)
	assert.False(t, pkt.Directed())
}

func TestDecode_HeaderOnly(t *testing.T) {
	pkt, err := protocol.Decode([]byte("UPDATE"))
	require.NoError(t, err)

	assert.True(t, pkt.HeaderOnly)
	assert.Equal(t, protocol.HeaderUpdate, pkt.Header)
	assert.Equal(t, "Update", string(pkt.Encode()))
}

func TestDecode_SenderOnlyIsNotDirected(t *testing.T) {
	pkt, err := protocol.Decode([]byte("String|hi&alice"))
	require.NoError(t, err)

	assert.False(t, pkt.Directed())
	assert.Equal(t, "alice", pkt.Sender())
	assert.Equal(t, "", pkt.Recipient())
}

func TestHeader_String(t *testing.T) {
	tests := []struct {
		h    protocol.Header
		want string
	}{
		{protocol.HeaderUnknown, "Unknown"},
		{protocol.HeaderString, "String"},
		{protocol.HeaderInteger, "Integer"},
		{protocol.HeaderUpdate, "Update"},
		{protocol.Header(99), "Invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.h.String(); got != tt.want {
				t.Errorf("Header.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
