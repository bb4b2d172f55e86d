package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier is the tenant's billing tier; it alone determines MaxBots.
type SubscriptionTier string

const (
	TierFree  SubscriptionTier = "free"
	TierBasic SubscriptionTier = "basic"
	TierPro   SubscriptionTier = "pro"
)

// Values lists every valid SubscriptionTier, in ascending order.
func (SubscriptionTier) Values() []string {
	return []string{string(TierFree), string(TierBasic), string(TierPro)}
}

// Valid reports whether t is one of the known tiers.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPro:
		return true
	default:
		return false
	}
}

// MaxBotsForTier returns the bot quota a tier grants. Tier and MaxBots always
// mutate together — see AccountStore.UpdateSubscription.
func MaxBotsForTier(t SubscriptionTier) int {
	switch t {
	case TierFree:
		return 0
	case TierBasic:
		return 2
	case TierPro:
		return 4
	default:
		return 0
	}
}

// Account is a tenant. Accounts are created externally to this system and
// are never destroyed by it.
type Account struct {
	ID               uuid.UUID
	ExternalID       string
	SubscriptionTier SubscriptionTier
	MaxBots          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
