package service

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultsHolder resolves the effective default settings document. Operators
// may override factory defaults with an optional tiffinbill.yml; the file is
// hot-reloaded and an invalid override is ignored rather than applied.
type DefaultsHolder struct {
	current atomic.Value // holds domain.Settings
}

func NewDefaultsHolder(log *zap.Logger) (*DefaultsHolder, error) {
	log = log.Named("settings.defaults")

	v := viper.New()
	v.SetConfigName("tiffinbill")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tiffinbill")
	v.AddConfigPath(".")

	holder := &DefaultsHolder{}
	holder.current.Store(domain.Defaults())

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
		return holder, nil
	}

	holder.apply(v, log)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		holder.apply(v, log)
		log.Info("defaults file reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Get returns the effective defaults document.
func (h *DefaultsHolder) Get() domain.Settings {
	return h.current.Load().(domain.Settings)
}

func (h *DefaultsHolder) apply(v *viper.Viper, log *zap.Logger) {
	override := v.GetStringMap("settings")
	if len(override) == 0 {
		h.current.Store(domain.Defaults())
		return
	}

	factory, err := domain.Defaults().ToMap()
	if err != nil {
		log.Warn("factory defaults do not encode", zap.Error(err))
		return
	}

	merged := domain.Merge(factory, override, log)
	settings, err := domain.FromMap(merged)
	if err != nil {
		log.Warn("defaults override ignored: not decodable", zap.Error(err))
		return
	}
	settings.Version = domain.CurrentVersion
	normalizeColumnKeys(&settings)

	if fieldErrs := domain.Validate(settings); len(fieldErrs) > 0 {
		log.Warn("defaults override ignored: invalid", zap.Int("errors", len(fieldErrs)))
		return
	}

	h.current.Store(settings)
}

// viper lowercases map keys, so the columns mapping is re-keyed against the
// canonical semantic names.
func normalizeColumnKeys(s *domain.Settings) {
	if len(s.Columns) == 0 {
		return
	}
	normalized := make(map[string]string, len(s.Columns))
	for key, value := range s.Columns {
		canonical := key
		for _, known := range domain.ColumnKeys {
			if strings.EqualFold(known, key) {
				canonical = known
				break
			}
		}
		normalized[canonical] = value
	}
	s.Columns = normalized
}
