package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugID(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{
			name:  "basic",
			parts: []string{"EDS La Castellana", "4.65", "-74.05"},
			want:  "terpel_eds_la_castellana_4_65_74_05",
		},
		{
			name:  "punctuation collapses to one underscore",
			parts: []string{"EDS -- La  Castellana!!", "4.65", "-74.05"},
			want:  "terpel_eds_la_castellana_4_65_74_05",
		},
		{
			name:  "leading and trailing junk stripped",
			parts: []string{"  (La Y) ", "1.0", "2.0"},
			want:  "terpel_la_y_1_0_2_0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SlugID("terpel", tt.parts...))
		})
	}
}

func TestSlugIDDeterministic(t *testing.T) {
	a := SlugID("terpel", "EDS Norte", "4.7", "-74.1")
	b := SlugID("terpel", "EDS Norte", "4.7", "-74.1")
	assert.Equal(t, a, b)
}

func TestSlugIDNamespacedBySource(t *testing.T) {
	a := SlugID("terpel", "EDS Norte", "4.7", "-74.1")
	b := SlugID("primax", "EDS Norte", "4.7", "-74.1")
	assert.NotEqual(t, a, b)
}

func TestStationPrice(t *testing.T) {
	st := Station{Prices: PriceMap{"corriente": 16000, "acpm": 10500}}

	p := st.Price("Corriente")
	if assert.NotNil(t, p) {
		assert.Equal(t, 16000.0, *p)
	}

	assert.Nil(t, st.Price("extra"))

	empty := Station{}
	assert.Nil(t, empty.Price("corriente"))
}
