package settlement

import (
	"context"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/lock"
	"github.com/xraph/settlement/plugin"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/types"
)

// ──────────────────────────────────────────────────
// Profiles
// ──────────────────────────────────────────────────

// CreateProfile registers a party's invoicing profile. Counters start at zero
// and are maintained by the engine from then on.
func (e *Engine) CreateProfile(ctx context.Context, p *profile.Profile) error {
	if err := validateProfile(p); err != nil {
		return e.failed(ctx, "create_profile", string(p.Owner), err)
	}

	if p.ID.IsNil() {
		p.ID = id.NewProfileID()
	}
	p.Entity = types.NewEntityAt(e.now())
	p.TotalInvoices = 0
	p.TotalReceived = 0

	err := e.atomically(ctx, "create_profile", string(p.Owner), []string{lock.ProfileKey(p.Owner)},
		func(ctx context.Context, tx store.Store, _ mover) error {
			return tx.CreateProfile(ctx, p)
		})
	if err != nil {
		return err
	}

	e.logger.Info("profile created", "profile_id", p.ID.String(), "owner", p.Owner)
	c := *p
	e.plugins.EmitProfileCreated(ctx, plugin.ProfileCreated{Profile: &c})
	return nil
}

func validateProfile(p *profile.Profile) error {
	if err := checkParty("owner", p.Owner); err != nil {
		return err
	}
	if len(p.Name) > profile.MaxNameLength {
		return invalid("name", ErrNameTooLong, "at most %d characters", profile.MaxNameLength)
	}
	if len(p.Email) > profile.MaxEmailLength {
		return invalid("email", ErrEmailTooLong, "at most %d characters", profile.MaxEmailLength)
	}
	if len(p.BusinessName) > profile.MaxBusinessNameLength {
		return invalid("business_name", ErrBusinessNameTooLong, "at most %d characters", profile.MaxBusinessNameLength)
	}
	return nil
}

// GetProfile retrieves a party's profile.
func (e *Engine) GetProfile(ctx context.Context, owner types.Party) (*profile.Profile, error) {
	return e.store.GetProfile(ctx, owner)
}
