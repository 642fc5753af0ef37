package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"priya.k_raman@vit.ac.in": "Priya K Raman",
		"ARJUN@gmail.com":         "Arjun",
		"21bce0042@vitstudent.in": "Bce",
		"first-last+tag@x.io":     "First Last Tag",
		"1234@x.io":               "Participant",
		"":                        "Participant",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, DisplayName(in))
		})
	}
}
