package filter

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/playsync/internal/domain/audio"
)

// SourceSchemeConfig represents the configuration for SourceSchemeFilter.
type SourceSchemeConfig struct {
	Allowed []string `mapstructure:"allowed" default:"[\"http\",\"https\"]" validate:"min=1,dive,required"`
}

// SourceSchemeFilter accepts only sources with an allowed URL scheme.
type SourceSchemeFilter struct {
	allowed []string
}

func (f *SourceSchemeFilter) Name() string {
	return "source_scheme_filter"
}

func (f *SourceSchemeFilter) Description() string {
	return "Rejects items whose source URL scheme is not allowed"
}

func (f *SourceSchemeFilter) ReturnCodes() []string {
	return []string{"unsupported_source"}
}

func (f *SourceSchemeFilter) ValidateConfig(settings map[string]any) error {
	var config SourceSchemeConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.allowed = f.allowed[:0]
	for _, s := range config.Allowed {
		f.allowed = append(f.allowed, strings.ToLower(s))
	}
	return nil
}

func (f *SourceSchemeFilter) Check(ctx context.Context, item audio.Item) Result {
	if len(f.allowed) == 0 {
		return Accept()
	}
	u, err := url.Parse(item.Source)
	if err != nil || u.Scheme == "" {
		return Reject("unsupported_source")
	}
	if !slices.Contains(f.allowed, strings.ToLower(u.Scheme)) {
		return Reject("unsupported_source")
	}
	return Accept()
}

func init() {
	Register("source_scheme_filter", func() Filter {
		return &SourceSchemeFilter{}
	})
}
