// Package protocol implements the chat wire format.
//
// A frame is "<Header>|<payload>[&<meta1>&<meta2>...]" in UTF-8. A frame with no
// '|' is valid only when it is a bare header name, which yields a header-only
// control packet. Header names are matched case-insensitively.
//
// On stream transports every frame is prefixed with its length, see AppendFrame
// and FrameReader.
package protocol

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	headerSep   = '|'
	metadataSep = '&'
)

// Packet is a single decoded frame.
type Packet struct {
	Header  Header
	Payload []byte
	// Metadata is only split out for String packets. For chat messages
	// Metadata[0] is the sender and Metadata[1], when present, the recipient.
	Metadata []string
	// HeaderOnly marks a frame that consisted of the header name alone.
	HeaderOnly bool
}

// Text returns the payload as a string.
func (p Packet) Text() string {
	return string(p.Payload)
}

// Directed reports whether the packet names a recipient.
func (p Packet) Directed() bool {
	return p.Header == HeaderString && len(p.Metadata) >= 2
}

// Sender returns Metadata[0], or "" when absent.
func (p Packet) Sender() string {
	if len(p.Metadata) == 0 {
		return ""
	}
	return p.Metadata[0]
}

// Recipient returns Metadata[1], or "" when absent.
func (p Packet) Recipient() string {
	if len(p.Metadata) < 2 {
		return ""
	}
	return p.Metadata[1]
}

// Encode renders the packet in wire form.
func (p Packet) Encode() []byte {
	name := p.Header.String()
	if p.HeaderOnly {
		return []byte(name)
	}
	n := len(name) + 1 + len(p.Payload)
	for _, m := range p.Metadata {
		n += 1 + len(m)
	}
	buf := make([]byte, 0, n)
	buf = append(buf, name...)
	buf = append(buf, headerSep)
	buf = append(buf, p.Payload...)
	for _, m := range p.Metadata {
		buf = append(buf, metadataSep)
		buf = append(buf, m...)
	}
	return buf
}

// Decode parses a frame into a Packet.
func Decode(data []byte) (Packet, error) {
	h, rest, bare, err := split(data)
	if err != nil {
		return Packet{}, err
	}
	if bare {
		return Packet{Header: h, HeaderOnly: true}, nil
	}
	pkt := Packet{Header: h}
	if h != HeaderString {
		pkt.Payload = bytes.Clone(rest)
		return pkt, nil
	}
	text, meta, _ := bytes.Cut(rest, []byte{metadataSep})
	pkt.Payload = bytes.Clone(text)
	if meta != nil {
		pkt.Metadata = strings.Split(string(meta), string(metadataSep))
	}
	return pkt, nil
}

// split separates the header from the remainder of the frame.
func split(data []byte) (h Header, rest []byte, bare bool, err error) {
	name, rest, found := bytes.Cut(data, []byte{headerSep})
	h, ok := ParseHeader(string(name))
	if !ok {
		return 0, nil, false, decodeError(ErrInvalidHeader, data, nil)
	}
	return h, rest, !found, nil
}

// EncodeString produces "String|<text>".
func EncodeString(text string) []byte {
	return Packet{Header: HeaderString, Payload: []byte(text)}.Encode()
}

// EncodeStringWithMetadata produces "String|<text>&<meta1>&<meta2>...".
func EncodeStringWithMetadata(text string, meta ...string) []byte {
	return Packet{Header: HeaderString, Payload: []byte(text), Metadata: meta}.Encode()
}

// EncodeInteger produces "Integer|<n>".
func EncodeInteger(n int) []byte {
	return Packet{Header: HeaderInteger, Payload: strconv.AppendInt(nil, int64(n), 10)}.Encode()
}

// EncodeHeaderOnly produces the bare header name.
func EncodeHeaderOnly(h Header) []byte {
	return Packet{Header: h, HeaderOnly: true}.Encode()
}

// DecodeHeader returns the header of a frame.
func DecodeHeader(data []byte) (Header, error) {
	h, _, _, err := split(data)
	return h, err
}

// DecodeString returns the text of a String frame. Unless includeMetadata is
// set, any '&'-delimited suffix is stripped.
func DecodeString(data []byte, includeMetadata bool) (string, error) {
	h, rest, _, err := split(data)
	if err != nil {
		return "", err
	}
	if h != HeaderString {
		return "", decodeError(ErrHeaderMismatch, data, nil)
	}
	if !includeMetadata {
		rest, _, _ = bytes.Cut(rest, []byte{metadataSep})
	}
	return string(rest), nil
}

// DecodeInteger returns the value of an Integer frame. The payload is a
// base-10 integer with an optional leading '-'.
func DecodeInteger(data []byte) (int, error) {
	h, rest, _, err := split(data)
	if err != nil {
		return 0, err
	}
	if h != HeaderInteger {
		return 0, decodeError(ErrHeaderMismatch, data, nil)
	}
	if len(rest) > 0 && rest[0] == '+' {
		return 0, decodeError(ErrMalformedPayload, data, nil)
	}
	n, err := strconv.Atoi(string(rest))
	if err != nil {
		return 0, decodeError(ErrMalformedPayload, data, err)
	}
	return n, nil
}

// ExtractMetadata splits the remainder of a frame on '&' and returns every
// segment after the payload. It returns nil for frames without metadata,
// including frames that do not decode.
func ExtractMetadata(data []byte) []string {
	_, rest, found := bytes.Cut(data, []byte{headerSep})
	if !found {
		return nil
	}
	_, meta, found := bytes.Cut(rest, []byte{metadataSep})
	if !found {
		return nil
	}
	return strings.Split(string(meta), string(metadataSep))
}
