package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSorted(t *testing.T) {
	assert := assert.New(t)

	var keys []string
	var values []int
	for key, value := range IterSorted(map[string]int{"c": 3, "a": 1, "b": 2}) {
		keys = append(keys, key)
		values = append(values, value)
	}

	assert.Equal([]string{"a", "b", "c"}, keys)
	assert.Equal([]int{1, 2, 3}, values)
}

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	first := map[string]string{"A": "1"}
	second := map[string]string{"B": "2"}

	all := maps.Collect(IterSeq2Concat(maps.All(first), maps.All(second)))
	assert.Equal(map[string]string{"A": "1", "B": "2"}, all)

	// Early stop must not panic.
	for range IterSeq2Concat(maps.All(first), maps.All(second)) {
		break
	}
}
