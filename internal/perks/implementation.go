// internal/perks/implementation.go
package perks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// service implements the Service interface. A single mutex serializes all
// member mutation: refresh-then-mutate-then-log is not atomic, so concurrent
// callers could otherwise double-refresh or lose a decrement.
type service struct {
	mu            sync.Mutex
	members       map[string]*Membership
	logger        zerolog.Logger
	tracer        trace.Tracer
	notifyLimiter *rate.Limiter
	perksUsed     metric.Int64Counter
}

// NewService creates a membership directory service instance.
func NewService(logger zerolog.Logger) Service {
	meter := otel.Meter("perkengine/perks")
	perksUsed, err := meter.Int64Counter("perks.used")
	if err != nil {
		logger.Warn().Err(err).Msg("perk counter unavailable")
	}
	return &service{
		members:       make(map[string]*Membership),
		logger:        logger,
		tracer:        otel.Tracer("perkengine/perks"),
		notifyLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 notifications per minute
		perksUsed:     perksUsed,
	}
}

// AddMember inserts or overwrites the membership keyed by its member ID.
func (s *service) AddMember(membership *Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[membership.MemberID()] = membership
}

// RemoveMember deletes the membership. Removing an unknown ID is a no-op.
func (s *service) RemoveMember(memberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, memberID)
}

// Members returns the held member IDs in sorted order.
func (s *service) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get looks up a membership by ID.
func (s *service) Get(memberID string) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(memberID)
}

func (s *service) get(memberID string) (*Membership, error) {
	membership, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", memberID, ErrMemberNotFound)
	}
	return membership, nil
}

// UsePerk consumes one perk for the member, propagating the membership's
// errors unchanged.
func (s *service) UsePerk(ctx context.Context, memberID string) error {
	_, span := s.tracer.Start(ctx, "perks.use",
		trace.WithAttributes(attribute.String("member.id", memberID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	membership, err := s.get(memberID)
	if err != nil {
		return err
	}

	if err := membership.UsePerk(); err != nil {
		span.SetAttributes(attribute.String("perks.denied", err.Error()))
		s.logger.Info().
			Str("member_id", memberID).
			Str("tier", membership.Tier()).
			Err(err).
			Msg("perk use denied")
		return err
	}

	if s.perksUsed != nil {
		s.perksUsed.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", membership.Tier())))
	}
	span.SetAttributes(attribute.Int("perks.available", membership.PerksAvailable()))
	s.logger.Debug().
		Str("member_id", memberID).
		Int("perks_available", membership.PerksAvailable()).
		Msg("perk used")
	return nil
}

// SyncAll pulls the current tier for every member, in sorted member-ID order
// so a run is deterministic. One member's failure does not abort the rest;
// failures are collected per member and returned joined.
func (s *service) SyncAll(ctx context.Context, billing BillingProvider) error {
	ctx, span := s.tracer.Start(ctx, "perks.sync_all")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if err := s.members[id].SyncWithBilling(ctx, billing); err != nil {
			s.logger.Error().Str("member_id", id).Err(err).Msg("billing sync failed")
			errs = append(errs, fmt.Errorf("sync member %s: %w", id, err))
		}
	}

	span.SetAttributes(
		attribute.Int("members.synced", len(ids)-len(errs)),
		attribute.Int("members.failed", len(errs)),
	)
	return errors.Join(errs...)
}

// Notify sends a message to the member. Fan-out is rate limited so a runaway
// caller cannot flood the delivery channel.
func (s *service) Notify(ctx context.Context, notifier Notifier, memberID, subject, body string) error {
	if !s.notifyLimiter.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	membership, err := s.get(memberID)
	if err != nil {
		return err
	}
	return membership.Notify(ctx, notifier, subject, body)
}
