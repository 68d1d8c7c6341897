package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordsAndTokens(t *testing.T) {
	assert.Equal(t, []string{"the", "cat's", "toy", "times", "über"}, Words("The cat's toy, 42 times: Über!"))
	assert.Equal(t, []string{"cat's", "toy", "times", "über"}, Tokens("The cat's toy, 42 times: Über!"))
	assert.Empty(t, Tokens("the and of"))
}

func TestOchiai(t *testing.T) {
	q := WordSet("red apple")
	assert.InDelta(t, 1.0, Ochiai(q, "Apple red"), 1e-9)
	assert.InDelta(t, 0.5, Ochiai(q, "red car"), 1e-9)
	assert.Zero(t, Ochiai(q, "123"))
	assert.Zero(t, Ochiai(nil, "red"))
	assert.Equal(t, 1, Overlap(q, "a red red car"))
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"Hi.", "How are you?", "fine"}, Sentences("Hi. How are you? fine"))
	assert.Empty(t, Sentences("   "))
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("the"))
	assert.False(t, IsStopword("calculator"))
}
