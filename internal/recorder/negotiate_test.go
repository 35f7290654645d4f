package recorder

import "testing"

func TestNegotiateFirstSupportedWins(t *testing.T) {
	// ogg-opus and plain webm supported, webm-opus not: ogg-opus wins
	// because it comes first in preference order, not because it is
	// "better" than webm.
	supported := map[string]bool{
		"audio/webm;codecs=opus": false,
		"audio/ogg;codecs=opus":  true,
		"audio/webm":             true,
	}
	got := Negotiate(func(c Candidate) bool { return supported[c.MimeType] })
	if got.MimeType != "audio/ogg;codecs=opus" {
		t.Errorf("negotiated %q, want audio/ogg;codecs=opus", got.MimeType)
	}
}

func TestNegotiateDeterministic(t *testing.T) {
	predicate := func(c Candidate) bool { return c.Container == "webm" }
	first := Negotiate(predicate)
	for i := 0; i < 10; i++ {
		if got := Negotiate(predicate); got != first {
			t.Fatalf("negotiation not deterministic: %v then %v", first, got)
		}
	}
	if first.MimeType != "audio/webm;codecs=opus" {
		t.Errorf("negotiated %q, want audio/webm;codecs=opus", first.MimeType)
	}
}

func TestNegotiateNilPredicate(t *testing.T) {
	if got := Negotiate(nil); got != PlatformDefault {
		t.Errorf("Negotiate(nil) = %v, want platform default", got)
	}
}

func TestNegotiateNothingSupported(t *testing.T) {
	got := Negotiate(func(c Candidate) bool { return c != PlatformDefault && false })
	if got != PlatformDefault {
		t.Errorf("negotiated %v with nothing supported, want platform default", got)
	}
}

func TestNegotiatePlatformDefaultSupported(t *testing.T) {
	// Only the platform default passes the predicate.
	got := Negotiate(func(c Candidate) bool { return c == PlatformDefault })
	if got != PlatformDefault {
		t.Errorf("negotiated %v, want platform default", got)
	}
}
