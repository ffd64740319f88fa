// Package ident canonicalizes use-case identifier tokens.
//
// Artifacts and annotations spell the same use case several ways (UC-02,
// UC02, UC-4, UC4). Normalize maps all of them to a single canonical
// spelling: the UC prefix followed by the numeric suffix zero-padded to at
// least two digits. Numbers wider than two digits keep their natural width,
// so UC-4 and UC04 are the same use case while UC-123 stays UC123.
package ident

import (
	"regexp"
	"strconv"
	"strings"

	"tracekg/internal/errors"
)

// Prefix is the canonical use-case prefix.
const Prefix = "UC"

var (
	tokenRe = regexp.MustCompile(`^(?i)UC[-_ ]?(\d+)$`)
	refRe   = regexp.MustCompile(`(?i)\bUC[-_]?\d+\b`)
)

// Normalize converts a raw use-case token into its canonical id.
// It is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	m := tokenRe.FindStringSubmatch(token)
	if m == nil {
		return "", errors.New(errors.NormalizationFailed, "not a use-case token: "+raw)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Digits already matched; overflow is the only way here.
		return "", errors.Wrap(errors.NormalizationFailed, "suffix out of range: "+raw, err)
	}

	if n < 10 {
		return Prefix + "0" + strconv.Itoa(n), nil
	}
	return Prefix + strconv.Itoa(n), nil
}

// MustNormalize is Normalize for tokens already known to be valid.
// It panics on malformed input and exists for test fixtures.
func MustNormalize(raw string) string {
	id, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// FindRefs returns every use-case reference token appearing in s, in order,
// without normalizing them. Callers normalize each and decide how to handle
// failures.
func FindRefs(s string) []string {
	return refRe.FindAllString(s, -1)
}

// NormalizeRefs normalizes every use-case reference in s, deduplicating
// while preserving first-seen order. Unparsable tokens are returned
// separately so callers can warn without losing them.
func NormalizeRefs(s string) (ids []string, bad []string) {
	seen := make(map[string]bool)
	for _, tok := range FindRefs(s) {
		id, err := Normalize(tok)
		if err != nil {
			bad = append(bad, tok)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, bad
}
