package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMap_PreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("zebra", "1")
	m.Set("apple", "2")
	m.Set("mango", "3")

	assert.Equal(t, []string{"zebra", "apple", "mango"}, m.Keys())

	m.Set("zebra", "updated")
	assert.Equal(t, []string{"zebra", "apple", "mango"}, m.Keys(), "re-setting an existing key must not move it")

	v, ok := m.Get("zebra")
	require.True(t, ok)
	assert.Equal(t, "updated", v)
}

func TestOrderedMap_Delete(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("c", "3")

	m.Delete("b")
	assert.Equal(t, []string{"a", "c"}, m.Keys())

	_, ok := m.Get("b")
	assert.False(t, ok)
}

func TestOrderedMap_JSONRoundTrip_PreservesOrder(t *testing.T) {
	input := []byte(`{"third":3,"first":1,"second":2}`)

	m := NewOrderedMap[int]()
	require.NoError(t, json.Unmarshal(input, m))
	assert.Equal(t, []string{"third", "first", "second"}, m.Keys())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, string(input), string(out))
	assert.Equal(t, `{"third":3,"first":1,"second":2}`, string(out))
}

func TestOrderedMap_Clone_IsIndependent(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("a", "1")

	clone := m.Clone()
	clone.Set("b", "2")

	assert.Equal(t, []string{"a"}, m.Keys())
	assert.Equal(t, []string{"a", "b"}, clone.Keys())
}

func TestOrderedMap_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	m := NewOrderedMap[string]()
	err := json.Unmarshal([]byte(`["not", "an", "object"]`), m)
	assert.Error(t, err)
}
