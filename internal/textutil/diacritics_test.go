package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveDiacritics(t *testing.T) {
	cases := map[string]string{
		"Napoleón":          "Napoleon",
		"crónica según":     "cronica segun",
		"São Paulo":         "Sao Paulo",
		"Übung macht müde":  "Ubung macht mude",
		"plain ascii":       "plain ascii",
		"":                  "",
		"já visto? àêîõç":   "ja visto? aeioc",
	}
	for in, want := range cases {
		assert.Equal(t, want, RemoveDiacritics(in), "input %q", in)
	}
}

func TestRemoveDiacritics_Idempotent(t *testing.T) {
	once := RemoveDiacritics("Valentín Rodríguez")
	assert.Equal(t, "Valentin Rodriguez", once)
	assert.Equal(t, once, RemoveDiacritics(once))
}
