package delivery

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/tiffinbill/internal/config"
	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"go.uber.org/fx"
)

// Property-store keys for provider credentials. Credentials are resolved
// once per operation and threaded through explicitly; there is no hidden
// cross-call state.
const (
	PropertyAccountSID = "twilio:accountSid"
	PropertyAuthToken  = "twilio:authToken"
	PropertyFromNumber = "twilio:fromNumber"
)

var ErrMissingCredentials = errors.New("missing_provider_credentials")

// Credentials is the provider identity for one operation.
type Credentials struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (c Credentials) Complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

type ResolverParams struct {
	fx.In

	Store  settingsdomain.Store
	Config config.Config
}

// Resolver loads credentials from the property store, falling back to
// environment configuration for any key the store does not hold.
type Resolver struct {
	store settingsdomain.Store
	cfg   config.Config
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{store: p.Store, cfg: p.Config}
}

// Resolve returns the effective credentials or ErrMissingCredentials when
// any part is absent. Operations call this once, before any row processing.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	creds := Credentials{
		AccountSID: r.lookup(ctx, PropertyAccountSID, r.cfg.TwilioAccountSID),
		AuthToken:  r.lookup(ctx, PropertyAuthToken, r.cfg.TwilioAuthToken),
		FromNumber: r.lookup(ctx, PropertyFromNumber, r.cfg.TwilioFromNumber),
	}
	if !creds.Complete() {
		return Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}

func (r *Resolver) lookup(ctx context.Context, key, fallback string) string {
	value, err := r.store.Get(ctx, key)
	if err != nil || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
