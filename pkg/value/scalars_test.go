package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatEqualNaN(t *testing.T) {
	nan := Float(math.NaN())
	assert.False(t, nan.Equal(nan))
	assert.True(t, Float(1.5).Equal(Float(1.5)))
}

func TestNewListHomogeneity(t *testing.T) {
	_, err := NewList([]FieldValue{Integer(1), String("x")})
	require.Error(t, err)
	var hErr *HomogeneityError
	require.ErrorAs(t, err, &hErr)
	assert.Equal(t, KindInteger, hErr.Expected)
	assert.Equal(t, KindString, hErr.Got)
}

func TestNewListEmptyAllowed(t *testing.T) {
	l, err := NewList(nil)
	require.NoError(t, err)
	assert.Equal(t, KindString, l.ItemKind)
	assert.Empty(t, l.Items)
}

func TestEntityRefEquality(t *testing.T) {
	a := EntityRef{Full: FullId{Type: "person", ID: "john"}}
	b := EntityRef{Full: FullId{Type: "person", ID: "john"}}
	c := EntityRef{Full: FullId{Type: "person", ID: "jane"}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "person.john", a.String())
}

func TestFieldRefString(t *testing.T) {
	ref := FieldRef{Full: FullId{Type: "task", ID: "t1"}, Field: "assignee_ref"}
	assert.Equal(t, "task.t1.assignee_ref", ref.String())
}
