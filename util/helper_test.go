package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIetfToIsoLangCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en-US", "en_US"},
		{"en-GB", "en_GB"},
		{"uk", "uk_UA"},
		{"de", "de_DE"},
		{" en-US ", "en_US"},
		{"", "en_US"},
		{"not a tag", "en_US"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IetfToIsoLangCode(tt.in))
		})
	}
}
