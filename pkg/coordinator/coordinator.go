// Package coordinator owns the lifecycle of the climate entities.
//
// It provides:
//   - Setup: account preferences, entity discovery and initial publishing
//   - Fixed-interval polling of every entity
//   - Lookup of entities for the HTTP surface
//   - A Prometheus collector that renders entity snapshots as gauges
//
// Scrapes never call the NuHeat API. They report what the last poll or
// command left behind.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/climate"
	"github.com/andreweacott/nuheat-conductor/pkg/device"
	"github.com/andreweacott/nuheat-conductor/pkg/logger"
	"github.com/andreweacott/nuheat-conductor/pkg/metrics"
	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
)

// DefaultPollInterval matches the vendor integration's refresh cadence
const DefaultPollInterval = 5 * time.Minute

// ErrNotReady reports that entities were requested before setup succeeded
var ErrNotReady = errors.New("coordinator is not set up yet")

// Options configure a Coordinator
type Options struct {
	Representation device.Representation
	Writer         climate.StateWriter
	// PollTimeout bounds one whole refresh cycle; zero means unbounded
	PollTimeout time.Duration
	Logger      *logger.Logger
	// ExporterMetrics is optional
	ExporterMetrics *metrics.ExporterMetrics
}

// Coordinator discovers and polls thermostats and groups
type Coordinator struct {
	api               nuheat.API
	metricDescriptors *metrics.MetricDescriptors
	opts              Options
	log               *logger.Logger

	// pollMu serializes Setup and Refresh
	pollMu sync.Mutex
	// collectMu serializes scrapes, which share the descriptors
	collectMu sync.Mutex

	mu          sync.RWMutex
	ready       bool
	prefs       device.AccountPreferences
	thermostats map[string]*climate.Thermostat
	groups      map[string]*climate.Group
}

// New creates a coordinator. metricDescriptors should be unregistered: the
// coordinator itself is the collector that exposes them.
func New(api nuheat.API, metricDescriptors *metrics.MetricDescriptors, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Representation == "" {
		opts.Representation = device.DefaultRepresentation
	}
	if metricDescriptors == nil {
		metricDescriptors = metrics.NewMetricDescriptorsUnregistered()
	}
	return &Coordinator{
		api:               api,
		metricDescriptors: metricDescriptors,
		opts:              opts,
		log:               opts.Logger,
		prefs:             device.DefaultPreferences(),
		thermostats:       map[string]*climate.Thermostat{},
		groups:            map[string]*climate.Group{},
	}
}

// Ready reports whether setup has completed
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Preferences returns the account preferences fetched during setup
func (c *Coordinator) Preferences() device.AccountPreferences {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prefs
}

// Representation returns the configured presentation mapping
func (c *Coordinator) Representation() device.Representation {
	return c.opts.Representation
}

// Setup fetches the account preferences and discovers every entity.
// A failed account fetch falls back to default preferences; a failed
// listing fails setup so the next tick tries again.
func (c *Coordinator) Setup(ctx context.Context) error {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	return c.setupLocked(ctx)
}

func (c *Coordinator) setupLocked(ctx context.Context) error {
	prefs := device.DefaultPreferences()
	account, err := c.api.Account(ctx)
	if err != nil {
		if nuheat.IsAuthError(err) {
			c.recordAuthFailure()
			return fmt.Errorf("setup: %w", err)
		}
		c.log.Warn("Failed to fetch account preferences, using defaults", "error", err.Error())
	} else {
		prefs = device.PreferencesFromAccount(account)
	}

	rawThermostats, err := c.api.Thermostats(ctx)
	if err != nil {
		c.recordFailure(err)
		return fmt.Errorf("setup: list thermostats: %w", err)
	}
	rawGroups, err := c.api.Groups(ctx)
	if err != nil {
		c.recordFailure(err)
		return fmt.Errorf("setup: list groups: %w", err)
	}

	entityOpts := climate.Options{
		Preferences:     prefs,
		Representation:  c.opts.Representation,
		Writer:          c.opts.Writer,
		Logger:          c.log,
		ExporterMetrics: c.opts.ExporterMetrics,
	}

	thermostats := make(map[string]*climate.Thermostat, len(rawThermostats))
	for i := range rawThermostats {
		raw := &rawThermostats[i]
		if raw.SerialNumber == "" {
			c.log.Warn("Skipping thermostat without serial number", "name", raw.Name)
			continue
		}
		thermostats[raw.SerialNumber] = climate.NewThermostat(c.api, raw, entityOpts)
	}

	groups := make(map[string]*climate.Group, len(rawGroups))
	for i := range rawGroups {
		raw := &rawGroups[i]
		if raw.GroupID == "" {
			c.log.Warn("Skipping group without id", "name", raw.GroupName)
			continue
		}
		groups[raw.GroupID] = climate.NewGroup(c.api, raw, entityOpts)
	}

	c.mu.Lock()
	c.prefs = prefs
	c.thermostats = thermostats
	c.groups = groups
	c.ready = true
	c.mu.Unlock()

	for _, th := range thermostats {
		th.Publish(ctx)
	}
	for _, g := range groups {
		g.Publish(ctx)
	}

	c.recordAuthSuccess()
	c.log.Info("Setup complete",
		"thermostats", len(thermostats),
		"groups", len(groups),
		"temperature_unit", string(prefs.Unit))
	return nil
}

// Refresh polls every entity. Before setup has succeeded it runs setup
// instead. Individual failures do not stop the cycle.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if c.opts.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.PollTimeout)
		defer cancel()
	}

	startTime := time.Now()
	defer func() {
		if c.opts.ExporterMetrics != nil {
			c.opts.ExporterMetrics.RecordPollDuration(time.Since(startTime).Seconds())
		}
	}()

	if !c.Ready() {
		return c.setupLocked(ctx)
	}

	thermostats := c.Thermostats()
	groups := c.Groups()

	var errs []error
	authFailed := false
	for _, th := range thermostats {
		if err := th.Update(ctx); err != nil {
			errs = append(errs, err)
			authFailed = authFailed || nuheat.IsAuthError(err)
			c.recordPollError()
		}
	}

	if len(groups) > 0 {
		listing, err := c.api.Groups(ctx)
		if err != nil {
			c.log.Warn("Failed to list groups", "error", err.Error())
			authFailed = authFailed || nuheat.IsAuthError(err)
			for _, g := range groups {
				g.MarkUnavailable(ctx)
				c.recordPollError()
			}
			errs = append(errs, fmt.Errorf("list groups: %w", err))
		} else {
			for _, g := range groups {
				if err := g.Apply(ctx, listing); err != nil {
					errs = append(errs, err)
					c.recordPollError()
				}
			}
		}
	}

	if authFailed {
		c.recordAuthFailure()
	} else {
		c.recordAuthSuccess()
	}

	if len(errs) > 0 {
		c.log.Warn("Refresh completed with errors",
			"total_entities", len(thermostats)+len(groups),
			"error_count", len(errs))
		return fmt.Errorf("refresh: %d errors: %w", len(errs), errors.Join(errs...))
	}

	if c.opts.ExporterMetrics != nil {
		c.opts.ExporterMetrics.RecordPollSuccess()
	}
	c.log.Debug("Refresh complete", "thermostats", len(thermostats), "groups", len(groups))
	return nil
}

// Run refreshes immediately and then every interval until ctx is cancelled
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	c.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.log.Warn("Poll failed", "error", err.Error())
	}
}

// Thermostat looks up a thermostat by serial number
func (c *Coordinator) Thermostat(id string) (*climate.Thermostat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	th, ok := c.thermostats[id]
	return th, ok
}

// Group looks up a group by id
func (c *Coordinator) Group(id string) (*climate.Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[id]
	return g, ok
}

// Thermostats returns every thermostat ordered by serial number
func (c *Coordinator) Thermostats() []*climate.Thermostat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.thermostats))
	for id := range c.thermostats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*climate.Thermostat, len(ids))
	for i, id := range ids {
		out[i] = c.thermostats[id]
	}
	return out
}

// Groups returns every group ordered by id
func (c *Coordinator) Groups() []*climate.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.groups))
	for id := range c.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*climate.Group, len(ids))
	for i, id := range ids {
		out[i] = c.groups[id]
	}
	return out
}

// States returns a snapshot of every entity, thermostats first
func (c *Coordinator) States() []climate.EntityState {
	thermostats := c.Thermostats()
	groups := c.Groups()
	states := make([]climate.EntityState, 0, len(thermostats)+len(groups))
	for _, th := range thermostats {
		states = append(states, th.State())
	}
	for _, g := range groups {
		states = append(states, g.State())
	}
	return states
}

func (c *Coordinator) recordPollError() {
	if c.opts.ExporterMetrics != nil {
		c.opts.ExporterMetrics.IncrementPollErrors()
	}
}

func (c *Coordinator) recordFailure(err error) {
	c.recordPollError()
	if nuheat.IsAuthError(err) {
		c.recordAuthFailure()
	}
}

func (c *Coordinator) recordAuthFailure() {
	if c.opts.ExporterMetrics != nil {
		c.opts.ExporterMetrics.IncrementAuthenticationErrors()
		c.opts.ExporterMetrics.SetAuthenticationValid(false)
	}
}

func (c *Coordinator) recordAuthSuccess() {
	if c.opts.ExporterMetrics != nil {
		c.opts.ExporterMetrics.SetAuthenticationValid(true)
	}
}
