package querytmpl

import "testing"

func TestEscapeLiteralRoundTripsNamedEscapes(t *testing.T) {
	in := "line one\nline two\ttabbed\rcarriage\bbackspace\fformfeed\"quoted\"\\backslash"
	out, err := escapeLiteral(in)
	if err != nil {
		t.Fatalf("escapeLiteral() error: %v", err)
	}
	want := `line one\nline two\ttabbed\rcarriage\bbackspace\fformfeed\"quoted\"\\backslash`
	if out != want {
		t.Errorf("escapeLiteral() = %q, want %q", out, want)
	}
}

func TestEscapeLiteralRejectsUnescapableControlChar(t *testing.T) {
	if _, err := escapeLiteral("bell\x07here"); err == nil {
		t.Error("escapeLiteral() with a bell byte should error, not silently pass through")
	}
}
