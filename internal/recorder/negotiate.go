// Package recorder provides the recording controller: a state machine
// that encodes the live capture stream into one in-memory artifact,
// negotiating the encoding format against host capabilities.
package recorder

// Candidate is one encoding format preference. A zero Container means
// the platform default: let the encoding host pick.
type Candidate struct {
	MimeType  string // Artifact MIME type ("" for platform default)
	Container string // Container format name ("" for platform default)
	Codec     string // Audio codec name ("" for container default)
}

// PlatformDefault is the final fallback candidate.
var PlatformDefault = Candidate{}

// Preferences is the ordered candidate list. Negotiation picks the first
// supported entry, not the "best" one, so the choice is deterministic
// for a given support predicate.
var Preferences = []Candidate{
	{MimeType: "audio/webm;codecs=opus", Container: "webm", Codec: "opus"},
	{MimeType: "audio/ogg;codecs=opus", Container: "ogg", Codec: "opus"},
	{MimeType: "audio/webm", Container: "webm"},
	PlatformDefault,
}

// SupportFunc reports whether the host can encode a candidate. It is a
// pure predicate injected by the host; nil means the host exposes no
// capability query at all.
type SupportFunc func(Candidate) bool

// Negotiate returns the first supported candidate in preference order.
// Without a support predicate the platform default is still attempted;
// only encoder construction failure makes recording unsupported.
func Negotiate(supported SupportFunc) Candidate {
	if supported == nil {
		return PlatformDefault
	}
	for _, c := range Preferences {
		if supported(c) {
			return c
		}
	}
	return PlatformDefault
}
