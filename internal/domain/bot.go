package domain

import (
	"time"

	"github.com/google/uuid"
)

// Persona selects the trading posture the worker's bootstrap configures.
type Persona string

const (
	PersonaBeginner  Persona = "beginner"
	PersonaTweaker   Persona = "tweaker"
	PersonaQuantLite Persona = "quant_lite"
)

func (Persona) Values() []string {
	return []string{string(PersonaBeginner), string(PersonaTweaker), string(PersonaQuantLite)}
}

func (p Persona) Valid() bool {
	switch p {
	case PersonaBeginner, PersonaTweaker, PersonaQuantLite:
		return true
	default:
		return false
	}
}

// BotStatus is the lifecycle state machine described in spec.md §4.5.
type BotStatus string

const (
	BotStatusPending      BotStatus = "pending"
	BotStatusProvisioning BotStatus = "provisioning"
	BotStatusOnline       BotStatus = "online"
	BotStatusPaused       BotStatus = "paused"
	BotStatusError        BotStatus = "error"
	BotStatusDestroyed    BotStatus = "destroyed"
)

func (BotStatus) Values() []string {
	return []string{
		string(BotStatusPending), string(BotStatusProvisioning), string(BotStatusOnline),
		string(BotStatusPaused), string(BotStatusError), string(BotStatusDestroyed),
	}
}

func (s BotStatus) Valid() bool {
	switch s {
	case BotStatusPending, BotStatusProvisioning, BotStatusOnline, BotStatusPaused, BotStatusError, BotStatusDestroyed:
		return true
	default:
		return false
	}
}

// HasDroplet reports whether this status requires DropletID to be set
// (invariant (a) in spec.md §3).
func (s BotStatus) HasDroplet() bool {
	switch s {
	case BotStatusProvisioning, BotStatusOnline, BotStatusPaused, BotStatusError:
		return true
	default:
		return false
	}
}

// Bot is a logical long-lived worker: one row here, one droplet at the IaaS,
// one desired/applied config pointer pair.
type Bot struct {
	ID                      uuid.UUID
	AccountID               uuid.UUID
	Name                    string
	Persona                 Persona
	Status                  BotStatus
	DropletID               *int64
	DesiredConfigVersionID  *uuid.UUID
	AppliedConfigVersionID  *uuid.UUID
	RegistrationTokenDigest string // "sha256:" || hex(sha256(token)); never the plaintext
	CreatedAt               time.Time
	UpdatedAt               time.Time
	LastHeartbeatAt         *time.Time
}

// NewBot builds a fresh in-memory Bot in the initial pending state, per
// spec.md §4.4 step 3. Name is assumed already sanitized by the caller.
func NewBot(accountID uuid.UUID, name string, persona Persona) *Bot {
	now := time.Now().UTC()
	return &Bot{
		ID:        uuid.New(),
		AccountID: accountID,
		Name:      name,
		Persona:   persona,
		Status:    BotStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
