package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{12.5, 12.5, true},
		{"12.5", 12.5, true},
		{"12,5", 12.5, true},
		{"1 234,5", 1234.5, true},
		{"1 234,5", 1234.5, true},
		{"1.234,50", 1234.5, true},
		{"1,234.50", 1234.5, true},
		{"12.5 m2", 12.5, true},
		{"0,73m²", 0.73, true},
		{"-3", -3, true},
		{"n/a", 0, false},
		{"", 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "input %v", tt.in)
	}
}

func TestFoldWord(t *testing.T) {
	assert.Equal(t, "designation", FoldWord("Désignation:"))
	assert.Equal(t, "qte", FoldWord("Qté."))
	assert.Equal(t, "epaisseur", FoldWord(" ÉPAISSEUR "))
	assert.Equal(t, "k2", FoldWord("K2"))
}

func TestParseYMD(t *testing.T) {
	got, err := ParseYMD("2024-06-12")
	assert.NoError(t, err)
	assert.Equal(t, 12, got.Day())

	_, err = ParseYMD("12/06/2024")
	assert.Error(t, err)
}
