package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualsNullNeverEqual(t *testing.T) {
	assert.False(t, NewNull().Equals(NewNull()))
	assert.False(t, NewNull().Equals(NewInteger(0)))
	assert.False(t, NewInteger(5).Equals(NewNull()))
}

func TestEqualsCrossNumericKind(t *testing.T) {
	assert.True(t, NewInteger(3).Equals(NewFloat(3)))
	assert.True(t, NewFloat(3).Equals(NewInteger(3)))
	assert.False(t, NewInteger(3).Equals(NewFloat(3.5)))
}

func TestEqualsSameKind(t *testing.T) {
	assert.True(t, NewString("a").Equals(NewString("a")))
	assert.False(t, NewString("a").Equals(NewString("b")))
	assert.True(t, NewBoolean(true).Equals(NewBoolean(true)))
}

func TestCompareNullUndefined(t *testing.T) {
	_, ok := NewNull().Compare(NewInteger(1))
	assert.False(t, ok)
	_, ok = NewInteger(1).Compare(NewNull())
	assert.False(t, ok)
}

func TestCompareNumeric(t *testing.T) {
	cmp, ok := NewInteger(1).Compare(NewFloat(2))
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = NewFloat(5).Compare(NewInteger(5))
	require.True(t, ok)
	assert.Equal(t, 0, cmp)
}

func TestCompareString(t *testing.T) {
	cmp, ok := NewString("a").Compare(NewString("b"))
	require.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestCompareBoolean(t *testing.T) {
	cmp, ok := NewBoolean(false).Compare(NewBoolean(true))
	require.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestAddPropagatesNull(t *testing.T) {
	v, err := NewNull().Add(NewInteger(1))
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestAddIntegerStaysInteger(t *testing.T) {
	v, err := NewInteger(2).Add(NewInteger(3))
	require.NoError(t, err)
	assert.Equal(t, KindInteger, v.Kind())
	assert.Equal(t, int64(5), v.AsInteger())
}

func TestAddWidensToFloat(t *testing.T) {
	v, err := NewInteger(2).Add(NewFloat(0.5))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind())
	assert.Equal(t, 2.5, v.NumericValue())
}

func TestAddNonNumericErrors(t *testing.T) {
	_, err := NewString("x").Add(NewInteger(1))
	assert.Error(t, err)
}

func TestHashBytesDistinctAcrossKinds(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range []Value{NewNull(), NewInteger(0), NewFloat(0), NewBoolean(false), NewString("")} {
		key := string(v.HashBytes())
		assert.False(t, seen[key], "collision for kind %v", v.Kind())
		seen[key] = true
	}
}

func TestHashBytesStableForEqualValues(t *testing.T) {
	assert.Equal(t, NewInteger(42).HashBytes(), NewInteger(42).HashBytes())
	assert.Equal(t, NewString("abc").HashBytes(), NewString("abc").HashBytes())
}
