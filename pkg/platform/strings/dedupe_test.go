package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil input", input: nil, want: nil},
		{name: "only blanks", input: []string{"", "  ", "\t"}, want: nil},
		{name: "broker list with stray spaces", input: []string{" kafka-1:9092", "kafka-2:9092 "}, want: []string{"kafka-1:9092", "kafka-2:9092"}},
		{name: "repeats keep first position", input: []string{"b", "a", "b", " a "}, want: []string{"b", "a"}},
		{name: "case is significant", input: []string{"Host", "host"}, want: []string{"Host", "host"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil input", input: nil, want: nil},
		{name: "extensions fold case", input: []string{".PDF", " .pdf", ".Jpg"}, want: []string{".pdf", ".jpg"}},
		{name: "blanks dropped", input: []string{"", "application/pdf", " "}, want: []string{"application/pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrimLower(tt.input))
		})
	}
}

func TestDedupeAndTrimSplitEnv(t *testing.T) {
	// the shape config.FromEnv feeds in for an unset variable
	assert.Nil(t, DedupeAndTrim(strings.Split("", ",")))
	assert.Equal(t, []string{"a", "b"}, DedupeAndTrim(strings.Split("a,,b,a,", ",")))
}
