package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewMedicineNormalizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"uppercases", "dolo 650mg", "DOLO 650MG"},
		{"collapses whitespace", "  Paracetamol   500 ", "PARACETAMOL 500"},
		{"glues dosage unit", "Dolo 650 mg", "DOLO 650MG"},
		{"trims trailing punctuation", "Crocin Advance.", "CROCIN ADVANCE"},
		{"empty stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewMedicineNormalizer()
	once := n.Normalize("azithral 500 mg tab")
	assert.Equal(t, once, n.Normalize(once))
}
