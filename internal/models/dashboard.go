package models

import "time"

// DashboardStats is the admin overview polled by the dashboard.
type DashboardStats struct {
	ActiveUsers     int       `json:"active_users"`
	TotalLogins     int       `json:"total_logins"`
	LessonPlans     int       `json:"lesson_plans"`
	UpcomingLessons int       `json:"upcoming_lessons"`
	GeneratedAt     time.Time `json:"generated_at"`
}
