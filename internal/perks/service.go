// internal/perks/service.go
package perks

import "context"

// Service defines the interface for the membership directory.
type Service interface {
	AddMember(membership *Membership)
	RemoveMember(memberID string)
	Get(memberID string) (*Membership, error)
	Members() []string
	UsePerk(ctx context.Context, memberID string) error
	SyncAll(ctx context.Context, billing BillingProvider) error
	Notify(ctx context.Context, notifier Notifier, memberID, subject, body string) error
}
