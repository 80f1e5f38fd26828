// internal/perks/membership_prop_test.go
package perks

import (
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Exercises random operation sequences against the state machine and checks
// the balance and audit invariants after every step.
func TestMembershipInvariants(t *testing.T) {
	tiers := []string{"Bronze", "Silver", "Gold", "Platinum"}

	rapid.Check(t, func(rt *rapid.T) {
		clock := newFakeClock(2025, time.January, 1)
		tier := rapid.SampledFrom(tiers).Draw(rt, "initial_tier")
		member := NewMembership("prop-1", tier, true, nil, clock)
		policies := DefaultPolicies()

		rt.Repeat(map[string]func(*rapid.T){
			"use": func(rt *rapid.T) {
				prevAvailable := member.PerksAvailable()
				prevUsed := member.PerksUsed()
				prevKey := member.CurrentMonthKey()

				err := member.UsePerk()
				if err == nil {
					// Success is a strict single-step decrement/increment,
					// unless a pending refresh recomputed the counters first.
					if member.CurrentMonthKey() == prevKey {
						if member.PerksAvailable() != prevAvailable-1 {
							rt.Fatalf("available %d, want %d", member.PerksAvailable(), prevAvailable-1)
						}
						if member.PerksUsed() != prevUsed+1 {
							rt.Fatalf("used %d, want %d", member.PerksUsed(), prevUsed+1)
						}
					}
				} else if !errors.Is(err, ErrNoPerksAvailable) && !errors.Is(err, ErrInactiveMember) {
					rt.Fatalf("unexpected error: %v", err)
				}
			},
			"advance_month": func(rt *rapid.T) {
				months := rapid.IntRange(1, 4).Draw(rt, "months")
				clock.Set(clock.Now().AddDate(0, months, 0))
			},
			"change_tier": func(rt *rapid.T) {
				member.ApplyTierChange(rapid.SampledFrom(tiers).Draw(rt, "new_tier"))
			},
			"toggle_active": func(rt *rapid.T) {
				member.SetActive(rapid.Bool().Draw(rt, "active"))
			},
			"": func(rt *rapid.T) {
				if member.PerksAvailable() < 0 {
					rt.Fatalf("perksAvailable went negative: %d", member.PerksAvailable())
				}
				if member.PerksUsed() < 0 {
					rt.Fatalf("perksUsed went negative: %d", member.PerksUsed())
				}
				policy := policies.Resolve(member.Tier())
				if policy.RolloverCap != nil && member.PerksAvailable() > *policy.RolloverCap {
					rt.Fatalf("perksAvailable %d exceeds cap %d for tier %s",
						member.PerksAvailable(), *policy.RolloverCap, member.Tier())
				}
				entries := member.AuditLog()
				if len(entries) == 0 || entries[0].Action != ActionInitMonth {
					rt.Fatalf("audit log must start with init_month")
				}
			},
		})
	})
}

// A month refresh never produces a balance above base+unused, and a second
// refresh check in the same month is a no-op.
func TestRefreshArithmetic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.IntRange(0, 10).Draw(rt, "base")
		rollover := rapid.Bool().Draw(rt, "rollover")
		var capPtr *int
		if rapid.Bool().Draw(rt, "capped") {
			c := rapid.IntRange(0, 15).Draw(rt, "cap")
			capPtr = &c
		}

		policies := PolicyTable{
			"Custom": {MonthlyPerks: base, RolloverUnused: rollover, RolloverCap: capPtr},
		}
		clock := newFakeClock(2025, time.March, 10)
		member := NewMembership("prop-2", "Custom", true, policies, clock)

		// Consume a few perks, then cross a month boundary.
		spent := rapid.IntRange(0, base).Draw(rt, "spent")
		for i := 0; i < spent; i++ {
			if err := member.UsePerk(); err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
		}
		unused := member.PerksAvailable()

		clock.Set(time.Date(2025, time.April, 2, 9, 0, 0, 0, time.UTC))
		member.ApplyTierChange("Custom") // triggers the pending refresh

		want := base
		if rollover {
			want += unused
		}
		if capPtr != nil && want > *capPtr {
			want = *capPtr
		}
		// The tier change recomputes against perksUsed, which the refresh
		// reset to zero, so the balance equals the refreshed base allotment.
		if member.PerksAvailable() != base {
			rt.Fatalf("post-change balance %d, want %d", member.PerksAvailable(), base)
		}
		if member.PerksUsed() != 0 {
			rt.Fatalf("perksUsed %d after refresh, want 0", member.PerksUsed())
		}

		var refreshed *AuditEntry
		for i := range member.AuditLog() {
			entry := member.AuditLog()[i]
			if entry.Action == ActionMonthRefresh {
				refreshed = &entry
			}
		}
		if refreshed == nil {
			rt.Fatalf("expected a month_refresh entry")
		}
		if got := refreshed.Details["new_perks_available"].(int); got != want {
			rt.Fatalf("refresh granted %d, want %d", got, want)
		}
		if got := refreshed.Details["unused_prev_month"].(int); got != unused {
			rt.Fatalf("refresh recorded unused %d, want %d", got, unused)
		}
	})
}
