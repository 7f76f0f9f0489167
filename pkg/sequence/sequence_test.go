package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCollect(t *testing.T) {
	got := From([]int{1, 2, 3, 4, 5}).Filter(func(v int) bool { return v%2 == 1 }).Collect()
	assert.Equal(t, []int{1, 3, 5}, got)
}

func TestFindStopsEarly(t *testing.T) {
	visited := 0
	v, ok := From([]int{1, 2, 3}).Filter(func(v int) bool { visited++; return true }).Find(func(v int) bool { return v == 2 })
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, visited)

	_, ok = From([]int{1}).Find(func(v int) bool { return v == 9 })
	assert.False(t, ok)
}

func TestReverseMapToSet(t *testing.T) {
	assert.Equal(t, []int{3, 2, 1}, From([]int{1, 2, 3}).Reverse().Collect())
	assert.Equal(t, []string{"a!", "b!"}, Map(From([]string{"a", "b"}), func(s string) string { return s + "!" }).Collect())
	assert.Len(t, ToSet(From([]string{"a", "a", "b"})), 2)
	assert.Equal(t, 3, From([]int{4, 5, 6}).Count())
}
