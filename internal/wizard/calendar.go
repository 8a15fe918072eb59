package wizard

import (
	"fmt"
	"time"

	"agenda/internal/models"
)

// Calendar decides which dates can be booked.
type Calendar struct {
	MaxAdvanceDays int
	ClosedWeekdays []time.Weekday
	Location       *time.Location
	Now            func() time.Time
}

func DefaultCalendar() Calendar {
	return Calendar{
		MaxAdvanceDays: models.DefaultMaxAdvanceDays,
		ClosedWeekdays: []time.Weekday{time.Sunday},
	}
}

func (c Calendar) Today() models.Date {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	if c.Location != nil {
		now = now.In(c.Location)
	}
	return models.DateOf(now)
}

// LastDay is the furthest bookable date, or the zero Date when unbounded.
func (c Calendar) LastDay() models.Date {
	if c.MaxAdvanceDays <= 0 {
		return models.Date{}
	}
	return c.Today().AddDays(c.MaxAdvanceDays)
}

func (c Calendar) Closed(wd time.Weekday) bool {
	for _, closed := range c.ClosedWeekdays {
		if closed == wd {
			return true
		}
	}
	return false
}

// Check returns nil when d can be booked.
func (c Calendar) Check(d models.Date) error {
	if d.IsZero() {
		return fmt.Errorf("%w: no date", ErrDateNotSelectable)
	}
	today := c.Today()
	if d.Before(today) {
		return fmt.Errorf("%w: %s is in the past", ErrDateNotSelectable, d)
	}
	if c.Closed(d.Weekday()) {
		return fmt.Errorf("%w: closed on %s", ErrDateNotSelectable, d.Weekday())
	}
	if last := c.LastDay(); !last.IsZero() && d.After(last) {
		return fmt.Errorf("%w: %s is more than %d days ahead", ErrDateNotSelectable, d, c.MaxAdvanceDays)
	}
	return nil
}

func (c Calendar) Selectable(d models.Date) bool {
	return c.Check(d) == nil
}
