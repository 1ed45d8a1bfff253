package protocol

import "strings"

// Header identifies the payload kind of a frame.
type Header int

const (
	HeaderUnknown Header = iota
	HeaderString
	HeaderInteger
	// HeaderUpdate is a header-only control frame. Routing ignores it.
	HeaderUpdate
)

var headerNames = [...]string{
	HeaderUnknown: "Unknown",
	HeaderString:  "String",
	HeaderInteger: "Integer",
	HeaderUpdate:  "Update",
}

// String returns the wire name of the header.
func (h Header) String() string {
	if h < 0 || int(h) >= len(headerNames) {
		return "Invalid"
	}
	return headerNames[h]
}

// ParseHeader matches name against the known header names, ignoring case.
func ParseHeader(name string) (Header, bool) {
	for h, n := range headerNames {
		if strings.EqualFold(n, name) {
			return Header(h), true
		}
	}
	return 0, false
}
