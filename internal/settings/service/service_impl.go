package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/smallbiznis/tiffinbill/internal/config"
	"github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Store    domain.Store
	Log      *zap.Logger
	Config   config.Config
	Defaults *DefaultsHolder
}

type Service struct {
	store    domain.Store
	log      *zap.Logger
	cfg      config.Config
	defaults *DefaultsHolder
}

func New(p Params) domain.Service {
	return &Service{
		store:    p.Store,
		log:      p.Log.Named("settings.service"),
		cfg:      p.Config,
		defaults: p.Defaults,
	}
}

// Load walks the Missing -> Migrating -> Ready cycle. Any parse or
// validation trouble falls open to defaults rather than failing the caller;
// only a missing document and a forward migration are persisted back.
func (s *Service) Load(ctx context.Context) (domain.Settings, error) {
	defaults := s.defaults.Get()

	raw, err := s.store.Get(ctx, domain.PropertyKey)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return s.seedMissing(ctx, defaults)
	}
	if err != nil {
		s.log.Warn("settings store unavailable, using defaults", zap.Error(err))
		return defaults, nil
	}

	var stored map[string]any
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.Warn("stored settings are not parseable, using defaults", zap.Error(err))
		return defaults, nil
	}

	defaultsDoc, err := defaults.ToMap()
	if err != nil {
		return domain.Settings{}, err
	}
	merged := domain.Merge(defaultsDoc, stored, s.log)

	if documentVersion(stored) < domain.CurrentVersion {
		return s.migrateForward(ctx, stored, merged, defaults)
	}

	settings, err := domain.FromMap(merged)
	if err != nil {
		s.log.Warn("merged settings do not decode, using defaults", zap.Error(err))
		return defaults, nil
	}
	if fieldErrs := domain.Validate(settings); len(fieldErrs) > 0 {
		s.log.Warn("stored settings are invalid, using defaults",
			zap.Int("errors", len(fieldErrs)),
		)
		return defaults, nil
	}
	return settings, nil
}

// Save re-validates before writing; the store never holds an invalid document.
func (s *Service) Save(ctx context.Context, settings domain.Settings) error {
	if fieldErrs := domain.Validate(settings); len(fieldErrs) > 0 {
		return domain.ValidationError{Errors: fieldErrs}
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, domain.PropertyKey, string(raw)); err != nil {
		return err
	}

	s.log.Info("settings saved", zap.Int("version", settings.Version))
	return nil
}

func (s *Service) Reset(ctx context.Context) error {
	return s.store.Delete(ctx, domain.PropertyKey)
}

// seedMissing handles the Missing state: a legacy flat bill message, when
// configured, is run through the normal v1 migration path so first-run
// installs upgrading from the old add-on keep their message text.
func (s *Service) seedMissing(ctx context.Context, defaults domain.Settings) (domain.Settings, error) {
	if s.cfg.LegacyBillMessage != "" {
		stored := map[string]any{
			"version":     1,
			"billMessage": s.cfg.LegacyBillMessage,
		}
		defaultsDoc, err := defaults.ToMap()
		if err != nil {
			return domain.Settings{}, err
		}
		merged := domain.Merge(defaultsDoc, stored, s.log)
		return s.migrateForward(ctx, stored, merged, defaults)
	}

	if err := s.Save(ctx, defaults); err != nil {
		s.log.Warn("could not seed default settings", zap.Error(err))
	}
	return defaults, nil
}

func (s *Service) migrateForward(
	ctx context.Context,
	stored, merged map[string]any,
	defaults domain.Settings,
) (domain.Settings, error) {
	migrated := domain.Migrate(stored, merged)

	settings, err := domain.FromMap(migrated)
	if err != nil {
		s.log.Warn("migrated settings do not decode, using defaults", zap.Error(err))
		return defaults, nil
	}
	settings.Version = domain.CurrentVersion

	if err := s.Save(ctx, settings); err != nil {
		var validationErr domain.ValidationError
		if errors.As(err, &validationErr) {
			s.log.Warn("migrated settings are invalid, using defaults",
				zap.Int("errors", len(validationErr.Errors)),
			)
			return defaults, nil
		}
		return domain.Settings{}, err
	}

	s.log.Info("settings migrated",
		zap.Int("from", documentVersion(stored)),
		zap.Int("to", domain.CurrentVersion),
	)
	return settings, nil
}

func documentVersion(doc map[string]any) int {
	switch v := doc["version"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
