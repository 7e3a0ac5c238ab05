package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	first := maps.All(map[string]int{"a": 1})
	second := maps.All(map[string]int{"b": 2, "a": 3})

	var keys []string
	for key := range IterSeq2Concat(first, second) {
		keys = append(keys, key)
	}
	assert.Len(keys, 3)
	assert.Equal("a", keys[0])

	count := 0
	for range IterSeq2Concat(first, second) {
		count++
		break
	}
	assert.Equal(1, count)
}
