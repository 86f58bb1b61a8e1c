package model

import "time"

// User is a tenant member who can purchase a plan subscription.
type User struct {
	ID            string
	TenantID      string
	Email         string
	PlanID        *string
	PlanExpiresAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasActivePlan reports whether the user currently holds an unexpired plan.
func (u *User) HasActivePlan(now time.Time) bool {
	return u.PlanID != nil && u.PlanExpiresAt != nil && now.Before(*u.PlanExpiresAt)
}
