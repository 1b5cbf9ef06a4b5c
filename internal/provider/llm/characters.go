package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hermesradio/hermes/internal/repository"
)

// SyncCharacters fills empty host prompt fields from the built-in persona
// defaults. Operator-edited prompts are never overwritten; clearing a
// prompt re-adopts the default on the next sync. Returns how many hosts
// were updated.
func SyncCharacters(ctx context.Context, hosts repository.HostRepository, logger *slog.Logger) (int, error) {
	all, err := hosts.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing hosts: %w", err)
	}

	synced := 0
	for _, host := range all {
		if host.StylePrompt != "" {
			continue
		}
		prompt := CharacterPrompt(host.Character)
		if prompt == "" {
			continue
		}

		host.StylePrompt = prompt
		if err := hosts.Update(ctx, host); err != nil {
			return synced, fmt.Errorf("updating host %s: %w", host.Slug, err)
		}
		synced++
		logger.Info("host prompt synced from defaults",
			slog.String("host", host.Slug),
			slog.String("character", host.Character))
	}
	return synced, nil
}
