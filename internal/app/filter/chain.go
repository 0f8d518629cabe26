package filter

import (
	"context"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/app/player"
	"github.com/osa030/playsync/internal/domain/audio"
	"github.com/osa030/playsync/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the item.
func (c *Chain) Execute(ctx context.Context, item audio.Item) Result {
	if c == nil {
		return Accept()
	}
	for _, f := range c.filters {
		result := f.Check(ctx, item)
		if !result.Accepted {
			zlog.Info().Str("component", "filter").Msgf("start rejected: filter=%s code=%s item=%s", f.Name(), result.Code, item.ID)
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// NewChainFromConfig builds a chain of the enabled filters in name order.
// provider is handed to filters that inspect the running service.
func NewChainFromConfig(filters map[string]config.FilterConfig, provider player.HandleProvider) (*Chain, error) {
	chain := NewChain()

	for _, name := range slices.Sorted(maps.Keys(filters)) {
		fcfg := filters[name]
		if !fcfg.Enabled {
			continue
		}

		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		f := factory()
		if d, ok := f.(*DuplicateItemFilter); ok {
			d.provider = provider
		}

		if err := f.ValidateConfig(fcfg.Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
		zlog.Info().Msgf("registered filter: name=%s", name)
	}

	return chain, nil
}
