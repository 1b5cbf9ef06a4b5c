package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/repository"
)

// ErrNoHost is returned when no active host can front a break.
var ErrNoHost = errors.New("no active host available")

// HostRotation alternates the regular hosts break by break and hands
// breaking news to the designated breaking host. The ordinal persists, so
// the voices keep alternating across restarts.
type HostRotation struct {
	hosts    repository.HostRepository
	rotation repository.RotationRepository
	logger   *slog.Logger
}

// NewHostRotation creates a HostRotation over the given repositories.
func NewHostRotation(hosts repository.HostRepository, rotation repository.RotationRepository, logger *slog.Logger) *HostRotation {
	return &HostRotation{
		hosts:    hosts,
		rotation: rotation,
		logger:   observability.WithComponent(logger, "rotation"),
	}
}

// NextHost picks the host for the next break. Breaking breaks always go to
// the breaking host and leave the ordinal alone. Regular breaks alternate:
// odd ordinals go to host_b, even to host_a; when the slotted host is
// missing or inactive any active host substitutes. The ordinal advances
// only when a host was actually found.
func (r *HostRotation) NextHost(ctx context.Context, breaking bool) (*models.Host, error) {
	if breaking {
		host, err := r.hosts.GetBreakingHost(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting breaking host: %w", err)
		}
		if host == nil {
			return nil, ErrNoHost
		}
		return host, nil
	}

	state, err := r.rotation.Current(ctx)
	if err != nil {
		return nil, err
	}
	ordinal := state.BreakCount + 1

	slug := models.HostSlugA
	if ordinal%2 == 1 {
		slug = models.HostSlugB
	}

	host, err := r.hosts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("getting host %q: %w", slug, err)
	}
	if host == nil || !host.Active {
		host, err = r.anyActive(ctx)
		if err != nil {
			return nil, err
		}
		r.logger.Warn("slotted host unavailable, substituting",
			slog.String("wanted", slug),
			slog.String("got", host.Slug))
	}

	if err := r.rotation.Record(ctx, ordinal, host.Slug); err != nil {
		return nil, err
	}

	return host, nil
}

// DialogHosts returns both rotation hosts for a dialog break. Dialog breaks
// do not advance the ordinal; parity resumes where it left off when the
// operator switches back to monologues.
func (r *HostRotation) DialogHosts(ctx context.Context) (*models.Host, *models.Host, error) {
	a, err := r.hosts.GetBySlug(ctx, models.HostSlugA)
	if err != nil {
		return nil, nil, fmt.Errorf("getting host %q: %w", models.HostSlugA, err)
	}
	b, err := r.hosts.GetBySlug(ctx, models.HostSlugB)
	if err != nil {
		return nil, nil, fmt.Errorf("getting host %q: %w", models.HostSlugB, err)
	}
	if a == nil || !a.Active || b == nil || !b.Active {
		return nil, nil, fmt.Errorf("dialog needs both rotation hosts: %w", ErrNoHost)
	}
	return a, b, nil
}

// anyActive returns the first active host, skipping the breaking persona
// unless nothing else remains.
func (r *HostRotation) anyActive(ctx context.Context) (*models.Host, error) {
	hosts, err := r.hosts.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active hosts: %w", err)
	}
	if len(hosts) == 0 {
		return nil, ErrNoHost
	}
	for _, h := range hosts {
		if !h.IsBreakingHost {
			return h, nil
		}
	}
	return hosts[0], nil
}
