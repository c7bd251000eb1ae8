package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareNumericCrossKind(t *testing.T) {
	c, err := Compare(Integer(3), Float(3.5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCompareStringLexicographic(t *testing.T) {
	c, err := Compare(String("apple"), String("banana"))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCompareDifferentKindsErrors(t *testing.T) {
	_, err := Compare(String("x"), Integer(1))
	require.Error(t, err)
	var typErr *ComparisonTypeError
	require.ErrorAs(t, err, &typErr)
}

func TestCompareCurrencyDifferentCodesErrors(t *testing.T) {
	a, _ := NewCurrency("10", "USD")
	b, _ := NewCurrency("10", "EUR")
	_, err := Compare(a, b)
	assert.Error(t, err)
}

func TestCompareNaNErrors(t *testing.T) {
	_, err := Compare(Float(math.NaN()), Float(1.0))
	require.Error(t, err)
	var typErr *ComparisonTypeError
	require.ErrorAs(t, err, &typErr)
	assert.True(t, typErr.NaN)
}

func TestCompareBooleanFalseBeforeTrue(t *testing.T) {
	c, err := Compare(Boolean(false), Boolean(true))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestSortStableByCompareDescending(t *testing.T) {
	items := []FieldValue{Integer(5), Integer(3), Integer(5), Integer(1)}
	SortStableByCompare(items, true)
	assert.Equal(t, []FieldValue{Integer(5), Integer(5), Integer(3), Integer(1)}, items)
}
