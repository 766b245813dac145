package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"what's", "your", "price", "today"}, Tokenize("What's your PRICE, today?!"))
	assert.Empty(t, Tokenize("  ...  "))
}

func TestKeywordMatcher(t *testing.T) {
	m := NewKeywordMatcher("price", "pricing", "talk to a human", "how much", "compare ... vs")

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single word", "What is the price?", []string{"price"}},
		{"no partial words", "This is priceless", nil},
		{"phrase", "Can I talk to a HUMAN please", []string{"talk to a human"}},
		{"phrase with punctuation", "so... how much, roughly?", []string{"how much"}},
		{"several", "pricing and price, how much", []string{"pricing", "price", "how much"}},
		{"gap", "How do you compare with others, you vs Intercom?", []string{"compare ... vs"}},
		{"gap out of order", "CSV vs PDF, how do they compare", nil},
		{"none", "tell me about your team", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.text))
		})
	}
}
