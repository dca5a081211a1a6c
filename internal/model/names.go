package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims, NFC-normalizes and collapses inner whitespace of a
// user-entered name.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// NameKey is the comparison key for item names: normalized and case-folded,
// so "Chair" and "chair " name the same item.
func NameKey(s string) string {
	return cases.Fold().String(NormalizeName(s))
}
