package models

import (
	"fmt"
	"time"

	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
)

// Tier names a subscription plan.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPro      Tier = "pro"
)

// Limits are the monthly allowances of a tier. Zero means unlimited.
type Limits struct {
	MonthlyUploads int
}

// DefaultTiers is the built-in plan table.
var DefaultTiers = map[Tier]Limits{
	TierFree:     {MonthlyUploads: 25},
	TierStandard: {MonthlyUploads: 500},
	TierPro:      {MonthlyUploads: 0},
}

func (t Tier) IsValid() bool {
	_, ok := DefaultTiers[t]
	return ok
}

// ParseTier validates a tier name from configuration.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "plan tier must be one of: free, standard, pro")
	}
	return t, nil
}

// Unlimited reports whether the limits impose no upload ceiling.
func (l Limits) Unlimited() bool {
	return l.MonthlyUploads <= 0
}

// Period is the calendar month a usage counter belongs to, in UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodOf returns the month containing now.
func PeriodOf(now time.Time) Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// UsageKey is the counter key for a user's uploads in a period.
// Format: plan:uploads:{user_id}:{yyyy-mm}
func UsageKey(userID id.UserID, p Period) string {
	return fmt.Sprintf("plan:uploads:%s:%s", userID, p.Start.Format("2006-01"))
}

// Usage is a snapshot of a user's consumption in the current period.
type Usage struct {
	UserID  id.UserID `json:"userId"`
	Tier    Tier      `json:"tier"`
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"resetAt"`
}
