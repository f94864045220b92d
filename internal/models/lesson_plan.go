package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DateLayout is the wire and storage format of a lesson date.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format of a lesson start time.
	ClockLayout = "15:04"
	// ClockSecondsLayout is used when the start time carries seconds.
	ClockSecondsLayout = "15:04:05"
	// MomentLayout renders derived start/end moments without a zone.
	MomentLayout = "2006-01-02T15:04:05"
)

var clockLayouts = []string{ClockSecondsLayout, ClockLayout}

// LessonPlan is a scheduled teaching event. Start and end are derived from
// Date, StartTime and DurationMinutes on every read and are never stored.
type LessonPlan struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	Date            time.Time `db:"lesson_date"`
	StartTime       string    `db:"start_time"`
	DurationMinutes int       `db:"duration_minutes"`
	CreatedBy       *string   `db:"created_by"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
	AssignedUsers   []string  `db:"-"`
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse lesson date %q: %w", raw, err)
	}
	return d, nil
}

// ParseClock parses HH:MM or HH:MM:SS into an offset from midnight.
func ParseClock(raw string) (time.Duration, error) {
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("parse lesson time %q: expected HH:MM", raw)
}

// DateString returns the lesson date as YYYY-MM-DD.
func (l *LessonPlan) DateString() string {
	return l.Date.Format(DateLayout)
}

// NormalizeClock parses raw and renders it as HH:MM, or HH:MM:SS when the
// seconds are not zero.
func NormalizeClock(raw string) (string, error) {
	offset, err := ParseClock(raw)
	if err != nil {
		return "", err
	}
	layout := ClockLayout
	if offset%time.Minute != 0 {
		layout = ClockSecondsLayout
	}
	return time.Time{}.Add(offset).Format(layout), nil
}

// Clock returns the normalised start time.
func (l *LessonPlan) Clock() string {
	clock, err := NormalizeClock(l.StartTime)
	if err != nil {
		return l.StartTime
	}
	return clock
}

// Start is the wall-clock start of the lesson. It carries the UTC location
// only as a neutral container; the value is a local schedule time.
func (l *LessonPlan) Start() time.Time {
	y, m, d := l.Date.Date()
	offset, _ := ParseClock(l.StartTime)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(offset)
}

// End is Start plus the lesson duration.
func (l *LessonPlan) End() time.Time {
	return l.Start().Add(time.Duration(l.DurationMinutes) * time.Minute)
}

// HasAssignee reports whether userID is in the assignment set.
func (l *LessonPlan) HasAssignee(userID string) bool {
	for _, id := range l.AssignedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

type lessonPlanJSON struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Duration      int       `json:"duration"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	CreatedBy     *string   `json:"created_by,omitempty"`
	AssignedUsers []string  `json:"assigned_users"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MarshalJSON renders the lesson with its derived start and end.
func (l LessonPlan) MarshalJSON() ([]byte, error) {
	assigned := l.AssignedUsers
	if assigned == nil {
		assigned = []string{}
	}
	return json.Marshal(lessonPlanJSON{
		ID:            l.ID,
		Title:         l.Title,
		Description:   l.Description,
		Date:          l.DateString(),
		Time:          l.Clock(),
		Duration:      l.DurationMinutes,
		Start:         l.Start().Format(MomentLayout),
		End:           l.End().Format(MomentLayout),
		CreatedBy:     l.CreatedBy,
		AssignedUsers: assigned,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	})
}

// UnmarshalJSON restores a lesson from its rendered form, used by the cache.
func (l *LessonPlan) UnmarshalJSON(data []byte) error {
	var raw lessonPlanJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	*l = LessonPlan{
		ID:              raw.ID,
		Title:           raw.Title,
		Description:     raw.Description,
		Date:            date,
		StartTime:       raw.Time,
		DurationMinutes: raw.Duration,
		CreatedBy:       raw.CreatedBy,
		CreatedAt:       raw.CreatedAt,
		UpdatedAt:       raw.UpdatedAt,
		AssignedUsers:   raw.AssignedUsers,
	}
	return nil
}

// CreateLessonPlanRequest is the payload for scheduling a lesson.
type CreateLessonPlanRequest struct {
	Title         string   `json:"title" validate:"required,max=255"`
	Description   string   `json:"description"`
	Date          string   `json:"date" validate:"required,lesson_date"`
	Time          string   `json:"time" validate:"required,lesson_clock"`
	Duration      int      `json:"duration" validate:"gt=0"`
	AssignedUsers []string `json:"assigned_users" validate:"omitempty,dive,uuid"`
}

// UpdateLessonPlanRequest carries the fields to change; nil means unchanged.
type UpdateLessonPlanRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Date        *string `json:"date" validate:"omitempty,lesson_date"`
	Time        *string `json:"time" validate:"omitempty,lesson_clock"`
	Duration    *int    `json:"duration" validate:"omitempty,gt=0"`
}

// AssignLessonPlanRequest replaces the set of users assigned to a lesson.
type AssignLessonPlanRequest struct {
	UserIDs []string `json:"user_ids" validate:"dive,uuid"`
}

// LessonPlanPatch lists the columns a partial update overwrites; nil fields
// keep their stored value. Date is YYYY-MM-DD and StartTime a normalised clock.
type LessonPlanPatch struct {
	Title           *string
	Description     *string
	Date            *string
	StartTime       *string
	DurationMinutes *int
}

// LessonPlanUserFilter narrows a user's lesson listing.
type LessonPlanUserFilter struct {
	UpcomingOnly bool
	Limit        int
}
