package filter

import (
	"context"

	"github.com/osa030/playsync/internal/app/player"
	"github.com/osa030/playsync/internal/domain/audio"
)

// DuplicateItemFilter rejects a start for the item the running service is
// already playing. A paused service may be restarted with the same item.
// Requests without an item ID match on source alone.
type DuplicateItemFilter struct {
	provider player.HandleProvider
}

// NewDuplicateItemFilter creates a new duplicate item filter.
func NewDuplicateItemFilter(provider player.HandleProvider) *DuplicateItemFilter {
	return &DuplicateItemFilter{provider: provider}
}

func (f *DuplicateItemFilter) Name() string {
	return "duplicate_item_filter"
}

func (f *DuplicateItemFilter) Description() string {
	return "Rejects starting the item that is already playing"
}

func (f *DuplicateItemFilter) ReturnCodes() []string {
	return []string{"already_playing"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateItemFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

func (f *DuplicateItemFilter) Check(ctx context.Context, item audio.Item) Result {
	if f.provider == nil {
		return Accept()
	}
	h := f.provider.Current()
	if h == nil || !h.IsPlaying() {
		return Accept()
	}
	current := h.Item()
	if current == nil {
		return Accept()
	}
	if current.Equal(item) || (item.ID == "" && current.Source == item.Source) {
		return Reject("already_playing")
	}
	return Accept()
}

// The provider is injected when the chain is built from config.
func init() {
	Register("duplicate_item_filter", func() Filter {
		return &DuplicateItemFilter{}
	})
}
