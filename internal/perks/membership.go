// internal/perks/membership.go
package perks

import (
	"context"

	"github.com/google/uuid"
)

// Membership tracks one subscriber's monthly perk allotment:
// tier-based monthly perks, optional capped rollover, automatic refresh when
// the clock crosses a month boundary, and an append-only audit trail.
//
// A Membership is not safe for concurrent use; callers that share one across
// goroutines must serialize access (the directory Service does this).
type Membership struct {
	memberID string
	tier     string
	isActive bool

	perksAvailable int
	perksUsed      int

	// currentMonthKey lags the real month until the next perk-consuming or
	// tier-changing action triggers a refresh check.
	currentMonthKey string

	policies PolicyTable
	clock    Clock
	auditLog []AuditEntry
}

// NewMembership creates a membership and initializes perks for the current
// month. Initialization grants the tier's monthly perks directly; no rollover
// applies on creation. A nil policies table falls back to DefaultPolicies and
// a nil clock to the system clock.
func NewMembership(memberID, tier string, active bool, policies PolicyTable, clock Clock) *Membership {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if clock == nil {
		clock = SystemClock()
	}

	m := &Membership{
		memberID: memberID,
		tier:     tier,
		isActive: active,
		policies: policies,
		clock:    clock,
	}
	m.currentMonthKey = MonthKey(clock.Now())
	m.initializeMonth()
	return m
}

func (m *Membership) policy() TierPolicy {
	return m.policies.Resolve(m.tier)
}

func (m *Membership) log(action AuditAction, details map[string]any) {
	m.auditLog = append(m.auditLog, AuditEntry{
		ID:        uuid.New(),
		Timestamp: m.clock.Now(),
		Action:    action,
		MemberID:  m.memberID,
		Tier:      m.tier,
		Details:   details,
	})
}

func (m *Membership) initializeMonth() {
	m.perksAvailable = m.policy().MonthlyPerks
	m.perksUsed = 0
	m.log(ActionInitMonth, map[string]any{"perks_available": m.perksAvailable})
}

// refreshIfNeeded applies a month refresh when the clock has crossed into a
// new month since perks were last computed. Multiple skipped months collapse
// into a single refresh step: one base allotment plus at most one rollover
// addition, never a replay per elapsed month.
func (m *Membership) refreshIfNeeded() {
	key := MonthKey(m.clock.Now())
	if key != m.currentMonthKey {
		m.refreshForNewMonth()
		m.currentMonthKey = key
	}
}

func (m *Membership) refreshForNewMonth() {
	policy := m.policy()

	unused := m.perksAvailable
	newTotal := policy.MonthlyPerks
	if policy.RolloverUnused {
		newTotal += unused
	}
	if policy.RolloverCap != nil && newTotal > *policy.RolloverCap {
		newTotal = *policy.RolloverCap
	}

	m.perksAvailable = newTotal
	m.perksUsed = 0

	m.log(ActionMonthRefresh, map[string]any{
		"unused_prev_month":   unused,
		"new_perks_available": m.perksAvailable,
	})
}

// UsePerk consumes one perk. It refreshes first if a month boundary was
// crossed, then fails with ErrInactiveMember or ErrNoPerksAvailable when the
// member is inactive or out of balance. Every outcome, including denials,
// appends exactly one audit entry.
func (m *Membership) UsePerk() error {
	m.refreshIfNeeded()

	if !m.isActive {
		m.log(ActionPerkDeniedInactive, nil)
		return ErrInactiveMember
	}
	if m.perksAvailable <= 0 {
		m.log(ActionPerkDeniedNoPerks, nil)
		return ErrNoPerksAvailable
	}

	m.perksAvailable--
	m.perksUsed++
	m.log(ActionPerkUsed, map[string]any{"perks_available": m.perksAvailable})
	return nil
}

// SetActive sets the activity gate. Activity is orthogonal to time, so no
// refresh check runs here.
func (m *Membership) SetActive(active bool) {
	m.isActive = active
	m.log(ActionSetActive, map[string]any{"is_active": m.isActive})
}

// ApplyTierChange switches the member to a new tier. Any pending month
// refresh is applied under the old tier's policy first. Perks already used
// this month count against the new tier's allotment and no rollover applies
// mid-month, so the balance becomes max(newMonthlyPerks - perksUsed, 0).
func (m *Membership) ApplyTierChange(newTier string) {
	m.refreshIfNeeded()

	oldTier := m.tier
	m.tier = newTier

	remaining := m.policy().MonthlyPerks - m.perksUsed
	if remaining < 0 {
		remaining = 0
	}
	m.perksAvailable = remaining

	m.log(ActionTierChanged, map[string]any{
		"old_tier":        oldTier,
		"new_tier":        newTier,
		"perks_available": remaining,
	})
}

// SyncWithBilling pulls the member's tier from the billing platform and
// applies it. Collaborator errors are returned unmodified.
func (m *Membership) SyncWithBilling(ctx context.Context, billing BillingProvider) error {
	newTier, err := billing.GetMemberTier(ctx, m.memberID)
	if err != nil {
		return err
	}
	m.ApplyTierChange(newTier)
	return nil
}

// Notify delivers a message to the member via the supplied notifier.
// Delivery failures are returned unmodified and leave no audit entry.
func (m *Membership) Notify(ctx context.Context, notifier Notifier, subject, body string) error {
	if err := notifier.Send(ctx, m.memberID, subject, body); err != nil {
		return err
	}
	m.log(ActionNotified, map[string]any{"subject": subject})
	return nil
}

// MemberID returns the opaque stable member identifier.
func (m *Membership) MemberID() string { return m.memberID }

// Tier returns the current tier name.
func (m *Membership) Tier() string { return m.tier }

// IsActive reports whether the member may consume perks.
func (m *Membership) IsActive() bool { return m.isActive }

// PerksAvailable returns the current perk balance.
func (m *Membership) PerksAvailable() int { return m.perksAvailable }

// PerksUsed returns the perks consumed since the last refresh.
func (m *Membership) PerksUsed() int { return m.perksUsed }

// CurrentMonthKey returns the month token perks were last computed for.
func (m *Membership) CurrentMonthKey() string { return m.currentMonthKey }

// AuditLog returns a copy of the audit trail in append order.
func (m *Membership) AuditLog() []AuditEntry {
	entries := make([]AuditEntry, len(m.auditLog))
	copy(entries, m.auditLog)
	return entries
}
