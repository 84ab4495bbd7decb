package climate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andreweacott/nuheat-conductor/pkg/device"
	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
)

// ErrGroupNotFound is returned when a group disappears from the listing
var ErrGroupNotFound = errors.New("group not found")

// Group is a climate entity backed by one NuHeat thermostat group
type Group struct {
	api  nuheat.API
	opts Options

	mu        sync.Mutex
	record    device.Group
	available bool
	// changed marks state to publish once mu is released
	changed bool
	seq     uint64

	pub statePublisher
}

// NewGroup creates an entity from a group listing entry
func NewGroup(api nuheat.API, raw *nuheat.GroupData, opts Options) *Group {
	return &Group{
		api:       api,
		opts:      opts.withDefaults(),
		record:    device.NewGroup(raw),
		available: !raw.IsEmpty(),
	}
}

// ID returns the group id
func (g *Group) ID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.record.ID
}

// Record returns the current canonical record
func (g *Group) Record() device.Group {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.record
}

// Available reports whether the group was present in the last listing
func (g *Group) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// State returns the host-facing snapshot
func (g *Group) State() EntityState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

// Publish writes the current state without polling
func (g *Group) Publish(ctx context.Context) {
	g.mu.Lock()
	defer g.unlockAndPublish(ctx)
	g.markChangedLocked()
}

// Update fetches the group listing and applies the matching entry
func (g *Group) Update(ctx context.Context) error {
	g.mu.Lock()
	defer g.unlockAndPublish(ctx)
	return g.refreshLocked(ctx)
}

// Apply updates the group from a listing fetched by the caller
func (g *Group) Apply(ctx context.Context, groups []nuheat.GroupData) error {
	g.mu.Lock()
	defer g.unlockAndPublish(ctx)
	return g.applyLocked(groups)
}

// MarkUnavailable flags the group after a failed listing
func (g *Group) MarkUnavailable(ctx context.Context) {
	g.mu.Lock()
	defer g.unlockAndPublish(ctx)
	g.available = false
	g.markChangedLocked()
}

// SetPreset turns away mode on for "Away" and off for "Home"
func (g *Group) SetPreset(ctx context.Context, preset device.Preset) error {
	g.mu.Lock()
	defer g.unlockAndPublish(ctx)

	if err := g.record.CheckCommand(); err != nil {
		return err
	}
	away, err := device.AwayForPreset(preset)
	if err != nil {
		return err
	}

	if err := g.api.SetGroupAway(ctx, g.record.ID, away); err != nil {
		g.opts.recordCommandError(CommandSetPreset)
		g.opts.Logger.WithGroup(g.record.ID).
			WithField("command", CommandSetPreset).
			WithError(err).
			Warn("Command failed, reconciling state")
		if rerr := g.refreshLocked(ctx); rerr != nil {
			g.opts.Logger.WithGroup(g.record.ID).WithError(rerr).Warn("Reconciliation failed")
		}
		return fmt.Errorf("%s on group %s: %w", CommandSetPreset, g.record.ID, err)
	}

	g.record = g.record.WithAway(away)
	g.opts.Logger.WithGroup(g.record.ID).WithField("away", away).Info("Group away mode set")
	g.markChangedLocked()
	return nil
}

func (g *Group) refreshLocked(ctx context.Context) error {
	if !g.record.HasIdentity() {
		return fmt.Errorf("refresh group: %w", device.ErrMissingIdentity)
	}
	groups, err := g.api.Groups(ctx)
	if err != nil {
		g.available = false
		g.opts.Logger.WithGroup(g.record.ID).WithError(err).Warn("Failed to refresh group")
		g.markChangedLocked()
		return fmt.Errorf("refresh group %s: %w", g.record.ID, err)
	}
	return g.applyLocked(groups)
}

func (g *Group) applyLocked(groups []nuheat.GroupData) error {
	raw, ok := device.FindGroup(groups, g.record.ID)
	if !ok {
		g.available = false
		g.opts.Logger.WithGroup(g.record.ID).Warn("Group no longer listed")
		g.markChangedLocked()
		return fmt.Errorf("refresh group %s: %w", g.record.ID, ErrGroupNotFound)
	}
	g.record = device.NormalizeGroup(g.record, raw)
	g.available = true
	g.markChangedLocked()
	return nil
}

func (g *Group) markChangedLocked() {
	g.changed = true
}

// unlockAndPublish releases mu and then writes the latest snapshot if the
// state changed while it was held
func (g *Group) unlockAndPublish(ctx context.Context) {
	if !g.changed {
		g.mu.Unlock()
		return
	}
	g.changed = false
	g.seq++
	seq, state := g.seq, g.stateLocked()
	g.mu.Unlock()

	if err := g.pub.write(ctx, g.opts.Writer, seq, state); err != nil {
		g.opts.Logger.WithGroup(state.ID).WithError(err).Warn("Failed to write group state")
	}
}

func (g *Group) stateLocked() EntityState {
	rec := g.record
	unit := g.opts.Preferences.Unit
	bounds := unit.DefaultBounds()

	return EntityState{
		Kind:               KindGroup,
		ID:                 rec.ID,
		Name:               rec.Name,
		Available:          g.available,
		Unit:               string(unit),
		CurrentTemperature: rec.CurrentTemperature(),
		TargetTemperature:  rec.TargetTemperature(),
		MinTemperature:     bounds.Min,
		MaxTemperature:     bounds.Max,
		HVACMode:           rec.HVACMode(),
		HVACModes:          []device.HVACMode{device.HVACModeHeat},
		Preset:             rec.Preset(),
		Presets:            device.GroupPresets(),
		Features:           rec.Features().Names(),
	}
}
