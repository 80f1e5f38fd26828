// internal/perks/domain.go
package perks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TierPolicy describes the monthly perk rules for one subscription tier.
type TierPolicy struct {
	MonthlyPerks   int  `json:"monthly_perks"`
	RolloverUnused bool `json:"rollover_unused"`
	// RolloverCap bounds the post-rollover total. Nil means uncapped.
	RolloverCap *int `json:"rollover_cap,omitempty"`
}

// PolicyTable maps tier names to their perk policies.
type PolicyTable map[string]TierPolicy

// Resolve returns the policy for a tier. Unknown tiers resolve to a
// zero-perk, no-rollover policy rather than an error.
func (pt PolicyTable) Resolve(tier string) TierPolicy {
	if policy, ok := pt[tier]; ok {
		return policy
	}
	return TierPolicy{}
}

// DefaultPolicies returns the stock Bronze/Silver/Gold catalog. A fresh map is
// returned on every call so callers cannot mutate a shared table.
func DefaultPolicies() PolicyTable {
	goldCap := 8
	return PolicyTable{
		"Bronze": {MonthlyPerks: 1},
		"Silver": {MonthlyPerks: 2},
		"Gold":   {MonthlyPerks: 4, RolloverUnused: true, RolloverCap: &goldCap},
	}
}

// MonthKey reduces an instant to its "YYYY-MM" billing month token.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// AuditAction tags one entry in a membership's audit trail.
type AuditAction string

const (
	ActionInitMonth          AuditAction = "init_month"
	ActionMonthRefresh       AuditAction = "month_refresh"
	ActionPerkUsed           AuditAction = "perk_used"
	ActionPerkDeniedInactive AuditAction = "use_perk_denied_inactive"
	ActionPerkDeniedNoPerks  AuditAction = "use_perk_denied_no_perks"
	ActionSetActive          AuditAction = "set_active"
	ActionTierChanged        AuditAction = "tier_changed"
	ActionNotified           AuditAction = "notified"
)

// AuditEntry is an immutable record of one state-changing or denied action.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    AuditAction    `json:"action"`
	MemberID  string         `json:"member_id"`
	Tier      string         `json:"tier"`
	Details   map[string]any `json:"details,omitempty"`
}

// Clock supplies the current instant. Substitutable for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// BillingProvider resolves a member's current tier from the billing platform.
type BillingProvider interface {
	GetMemberTier(ctx context.Context, memberID string) (string, error)
}

// Notifier delivers a message to a member over an external channel.
type Notifier interface {
	Send(ctx context.Context, toMemberID, subject, body string) error
}
