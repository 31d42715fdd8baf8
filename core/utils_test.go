package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello "))
	assert.Equal(t, "hello", CleanString("  HeLLo ", true))
	assert.Equal(t, "", CleanString("   "))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"AKIFT2025", "BKIFT2025"}, SplitList("AKIFT2025, BKIFT2025"))
	assert.Equal(t, []string{"INF"}, SplitList(" INF ,, "))
	assert.Empty(t, SplitList(""))
	assert.Empty(t, SplitList(" , "))
}
