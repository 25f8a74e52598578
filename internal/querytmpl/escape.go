// Package querytmpl mints every query the memory adapter issues against
// the triple store. Every string that reaches a query (literal, id,
// datetime, decimal) funnels through the helpers in this file first; no
// other package builds a query pattern directly against triplestore.
package querytmpl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/memtype"
)

// DefaultLimit is the hard cap applied to every SELECT without an explicit
// caller-supplied limit.
const DefaultLimit = 1000

// controlChar matches any control character not covered by the named
// escape set below (\", \\, \n, \r, \t, \b, \f, NUL).
var controlChar = regexp.MustCompile(`[\x01-\x07\x0B\x0E-\x1F]`)

var literalReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\b", `\b`,
	"\f", `\f`,
	"\x00", `\u0000`,
)

// escapeLiteral renders s as a safe double-quoted literal body. Control
// characters outside the named escape set are rejected outright.
func escapeLiteral(s string) (string, error) {
	if controlChar.MatchString(s) {
		return "", fmt.Errorf("%w: control character in literal", memerr.ErrInvalidQueryInput)
	}
	return literalReplacer.Replace(s), nil
}

// validateID re-checks an id against the shared charset/length constraint
// at the point of interpolation, even though callers are expected to have
// already validated it upstream.
func validateID(id string, maxLen int) error {
	if !memtype.ValidLocalName(id, maxLen) {
		return fmt.Errorf("%w: invalid id %q", memerr.ErrInvalidQueryInput, id)
	}
	return nil
}

// formatDateTime is the canonical ISO-8601 datetime formatter every query
// uses; it always normalizes to UTC so output is directly comparable as a
// string.
func formatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// parseDateTime is the inverse of formatDateTime.
func parseDateTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000000000Z", s)
}

// formatDecimal renders a float with a fixed, locale-independent format.
func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
