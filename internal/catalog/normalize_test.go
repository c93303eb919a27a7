package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldStreetName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Carrer Major", "carrer major"},
		{"Passeig d'en Blay", "passeig d'en blay"},
		{"Avinguda Onze de Setembre", "avinguda onze de setembre"},
		{"PLAÇA CLARÀ", "placa clara"},
		{"  Sant Esteve  ", "sant esteve"},
		{"Ronda Fluvià", "ronda fluvia"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, foldStreetName(tc.in), "input %q", tc.in)
	}
}
