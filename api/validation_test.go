package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPersonName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"plain", "Ada Lovelace", true},
		{"hyphen", "Jean-Luc", true},
		{"apostrophe", "D'Arcy", true},
		{"non latin", "Ōtani Shōhei", true},
		{"digits", "Ada 2", false},
		{"leading space", " Ada", false},
		{"leading hyphen", "-Ada", false},
		{"punctuation", "Ada!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validPersonName(tt.input))
		})
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"e164", "+15551234567", true},
		{"ten digits", "5551234567", true},
		{"separators", "(555) 123-4567", true},
		{"fifteen digits", "+123456789012345", true},
		{"nine digits", "555123456", false},
		{"sixteen digits", "1234567890123456", false},
		{"letters", "555-123-ABCD", false},
		{"plus in the middle", "555+1234567", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validPhone(tt.input))
		})
	}
}
