// Package normalize maps raw medicine names from bills to a canonical
// form so the same product extracted with different casing or spacing
// lands in the same name family during reconciliation.
package normalize

import (
	"regexp"
	"strings"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	dosagePattern     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(MG|ML|GM|G|MCG|IU)\b`)
)

// MedicineNormalizer canonicalizes medicine names. Pure; safe to call
// concurrently.
type MedicineNormalizer struct{}

// NewMedicineNormalizer creates a medicine name normalizer.
func NewMedicineNormalizer() *MedicineNormalizer {
	return &MedicineNormalizer{}
}

// Normalize returns the canonical form of a raw bill name: uppercase,
// single-spaced, dosage units glued to their number ("DOLO 650 MG" and
// "dolo 650mg" both become "DOLO 650MG").
func (n *MedicineNormalizer) Normalize(rawName string) string {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)
	name = whitespacePattern.ReplaceAllString(name, " ")
	name = dosagePattern.ReplaceAllString(name, "${1}${2}")
	name = strings.Trim(name, " .,-")

	return name
}
