package value

import (
	"fmt"
	"time"
)

// Precision records whether a DateTime was written with a date only or
// with a date and minute, per spec.md §4.1.
type Precision int

const (
	PrecisionDate Precision = iota
	PrecisionDateMinute
)

func (p Precision) String() string {
	if p == PrecisionDate {
		return "date"
	}
	return "date-minute"
}

// OffsetKind distinguishes a value written with no explicit UTC offset
// (Local) from one written with "UTC" or "UTC±h" (FixedUTC).
type OffsetKind int

const (
	OffsetLocal OffsetKind = iota
	OffsetFixedUTC
)

// Offset is the source-level offset annotation of a DateTime literal.
// Hours is only meaningful when Kind is OffsetFixedUTC.
type Offset struct {
	Kind  OffsetKind
	Hours int
}

// DateTime is an instant with a recorded source precision and offset.
//
// Ordering compares Instant, which is always normalized to UTC at
// construction time. spec.md §9 leaves open how a Local-offset value
// (one written with no explicit "UTC" suffix, whether date-only or
// date-minute) should be placed on that UTC timeline; this implementation
// resolves it by treating the written wall-clock value as if it were
// already UTC — i.e. a Local value never shifts. This is documented here
// rather than guessed silently, per the open question's instruction to
// "prefer the entity's own offset if present, else treat as UTC midnight".
type DateTime struct {
	Instant   time.Time
	Precision Precision
	Offset    Offset
}

func (v DateTime) Kind() Kind { return KindDateTime }

func (v DateTime) String() string {
	if v.Precision == PrecisionDate {
		return v.Instant.Format("2006-01-02")
	}
	s := v.Instant.Format("2006-01-02 at 15:04")
	if v.Offset.Kind == OffsetFixedUTC {
		if v.Offset.Hours == 0 {
			s += " UTC"
		} else {
			s += fmt.Sprintf(" UTC%+d", v.Offset.Hours)
		}
	}
	return s
}

// Equal compares the denoted instant, not the source precision/offset
// annotations — two literals naming the same moment are the same value.
func (v DateTime) Equal(o FieldValue) bool {
	ov, ok := o.(DateTime)
	return ok && v.Instant.Equal(ov.Instant)
}

// Compare orders two DateTime values by instant; ties break at zero.
func (v DateTime) Compare(o DateTime) int {
	switch {
	case v.Instant.Before(o.Instant):
		return -1
	case v.Instant.After(o.Instant):
		return 1
	default:
		return 0
	}
}

// NewDate constructs a date-precision DateTime (no explicit offset).
func NewDate(year, month, day int) (DateTime, error) {
	if !validDate(year, month, day) {
		return DateTime{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return DateTime{
		Instant:   time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
		Precision: PrecisionDate,
		Offset:    Offset{Kind: OffsetLocal},
	}, nil
}

// NewDateTime constructs a date-minute-precision DateTime. offset is
// Offset{Kind: OffsetLocal} when the literal carried no "UTC" suffix.
func NewDateTime(year, month, day, hour, minute int, offset Offset) (DateTime, error) {
	if !validDate(year, month, day) {
		return DateTime{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return DateTime{}, fmt.Errorf("invalid time %02d:%02d", hour, minute)
	}
	wallClock := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	instant := wallClock
	if offset.Kind == OffsetFixedUTC && offset.Hours != 0 {
		// A literal written "at HH:MM UTC+N" denotes local wall-clock N
		// hours ahead of UTC, so the UTC instant is wallClock - N hours.
		instant = wallClock.Add(-time.Duration(offset.Hours) * time.Hour)
	}
	return DateTime{Instant: instant, Precision: PrecisionDateMinute, Offset: offset}, nil
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
