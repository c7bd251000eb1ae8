package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateRejectsInvalidCalendarDate(t *testing.T) {
	_, err := NewDate(2024, 2, 30)
	assert.Error(t, err)
}

func TestNewDateTimeLocalOffsetNotShifted(t *testing.T) {
	dt, err := NewDateTime(2024, 1, 15, 9, 30, Offset{Kind: OffsetLocal})
	require.NoError(t, err)
	assert.Equal(t, 9, dt.Instant.Hour())
	assert.Equal(t, 30, dt.Instant.Minute())
}

func TestNewDateTimeFixedUTCOffsetShiftsInstant(t *testing.T) {
	// "09:30 UTC+2" means local wall clock is 2 hours ahead of UTC, so the
	// UTC instant is 07:30.
	dt, err := NewDateTime(2024, 1, 15, 9, 30, Offset{Kind: OffsetFixedUTC, Hours: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, dt.Instant.Hour())
}

func TestDateTimeCompareOrdersByInstant(t *testing.T) {
	earlier, _ := NewDate(2024, 1, 1)
	later, _ := NewDate(2024, 6, 1)
	assert.Equal(t, -1, earlier.Compare(later))
	assert.Equal(t, 1, later.Compare(earlier))
	assert.Equal(t, 0, earlier.Compare(earlier))
}

func TestDateTimeEqualIgnoresPrecisionAnnotation(t *testing.T) {
	dateOnly, _ := NewDate(2024, 1, 15)
	dateMinute, _ := NewDateTime(2024, 1, 15, 0, 0, Offset{Kind: OffsetLocal})
	assert.True(t, dateOnly.Equal(dateMinute))
}
