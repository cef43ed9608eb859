// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package plugin assembles platform identification, SMU services and the PM table
// into one attached instance.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"zensmu/internal/cppc"
	"zensmu/internal/cpuid"
	"zensmu/internal/platform"
	"zensmu/internal/pmtable"
	"zensmu/internal/smu"
)

// ErrUnsupportedCPU means the processor isn't an AMD family the plugin knows.
var ErrUnsupportedCPU = errors.New("unsupported cpu")

var errAttached = errors.New("plugin already attached")

// Deps are the collaborators the plugin is built from. CPUID and Registers are
// required; the rest are optional.
type Deps struct {
	CPUID     cpuid.Reader
	Registers smu.RegisterAccessor
	// Classifier defaults to the built-in platform rules.
	Classifier *platform.Classifier
	// Resolver defaults to smu.DefaultResolver.
	Resolver *smu.Resolver
	// Mapper, when set, maps the PM table after setup.
	Mapper pmtable.Mapper
	// CPPC, when set, is evaluated for CPU at attach.
	CPPC cppc.Evaluator
	CPU  int
}

// Plugin is one attached SMU instance.
type Plugin struct {
	deps  Deps
	ready chan struct{}

	mu       sync.Mutex
	attached bool
	vendor   string
	identity cpuid.Identity
	platform platform.Platform
	service  *smu.Service
	pipeline *pmtable.Pipeline
	table    *pmtable.Table
	view     *pmtable.View
	cppc     *cppc.Capabilities
}

func New(deps Deps) *Plugin {
	if deps.Classifier == nil {
		deps.Classifier = platform.MustNewClassifier(platform.Rules)
	}
	if deps.Resolver == nil {
		deps.Resolver = smu.DefaultResolver
	}
	return &Plugin{deps: deps, ready: make(chan struct{})}
}

// Ready is closed once Attach succeeds.
func (p *Plugin) Ready() <-chan struct{} {
	return p.ready
}

// WaitReady blocks until Attach succeeds or ctx is done.
func (p *Plugin) WaitReady(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach identifies the processor, sets up SMU services and, where the platform has
// one, the PM table. PM table problems are logged and don't prevent attaching.
func (p *Plugin) Attach() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached {
		return errAttached
	}

	slog.Debug("setting up smu services")
	vendor, id, err := cpuid.Read(p.deps.CPUID)
	if err != nil {
		return fmt.Errorf("failed to read cpuid: %w", err)
	}
	slog.Info("cpu vendor detected", slog.String("vendor", vendor))
	if vendor != cpuid.AMDVendor {
		return fmt.Errorf("%w: vendor %q", ErrUnsupportedCPU, vendor)
	}
	if !platform.IsSupportedFamily(id.Family) {
		return fmt.Errorf("%w: family 0x%x", ErrUnsupportedCPU, id.Family)
	}
	plat := p.deps.Classifier.Classify(id)
	if plat.IsUndetermined() {
		return fmt.Errorf("%w: %s", ErrUnsupportedCPU, id)
	}
	slog.Info("platform detected", slog.String("platform", plat.String()), slog.String("identity", id.String()))

	service := smu.NewService(plat, smu.NewTransport(p.deps.Registers), p.deps.Resolver)
	if _, err := service.Resolve(smu.MP1); err != nil {
		slog.Error("failed to setup smu services", slog.String("error", err.Error()))
		service.DumpState()
		return err
	}

	var pipeline *pmtable.Pipeline
	var table *pmtable.Table
	var view *pmtable.View
	if pmtable.Activated(plat) {
		slog.Debug("activating pm table services")
		pipeline = pmtable.NewPipeline(service, plat)
		table, view = p.setupTable(service, pipeline)
	}

	version, err := service.FirmwareVersion()
	if err != nil {
		slog.Error("grabbing smu version failed", slog.String("error", err.Error()))
		service.DumpState()
		if view != nil {
			_ = view.Close()
		}
		return err
	}
	slog.Info("smu firmware", slog.String("version", smu.FormatVersion(version)))

	if p.deps.CPPC != nil {
		p.cppc = readCPPC(p.deps.CPPC, p.deps.CPU)
	}

	p.vendor, p.identity, p.platform = vendor, id, plat
	p.service, p.pipeline, p.table, p.view = service, pipeline, table, view
	p.attached = true
	service.MarkStarted()
	close(p.ready)
	return nil
}

func (p *Plugin) setupTable(service *smu.Service, pipeline *pmtable.Pipeline) (*pmtable.Table, *pmtable.View) {
	table, err := pipeline.Setup()
	if smu.IsTransient(err) {
		slog.Warn("smu busy during pm table setup, retrying", slog.String("error", err.Error()))
		table, err = pipeline.Setup()
	}
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		if last, ok := pipeline.LastCommand(); ok {
			attrs = append(attrs, slog.String("last_command", last.String()), slog.String("response", last.Response.String()))
		}
		slog.Warn("pm table setup failed", attrs...)
		return nil, nil
	}
	service.SetDramBase(table.DramBase)
	if p.deps.Mapper == nil || table.Degraded {
		return table, nil
	}
	view, err := pmtable.Map(p.deps.Mapper, table)
	if err != nil {
		slog.Warn("pm table mapping failed", slog.String("error", err.Error()))
		return table, nil
	}
	return table, view
}

func readCPPC(ev cppc.Evaluator, cpu int) *cppc.Capabilities {
	caps, err := cppc.Read(ev, cpu)
	if errors.Is(err, cppc.ErrNotFound) {
		slog.Debug("no cppc capabilities", slog.Int("cpu", cpu))
		return nil
	}
	if err != nil {
		slog.Warn("failed to read cppc capabilities", slog.Int("cpu", cpu), slog.String("error", err.Error()))
		return nil
	}
	return caps
}

// Close unmaps the PM table.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view == nil {
		return nil
	}
	err := p.view.Close()
	p.view = nil
	return err
}

func (p *Plugin) Vendor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vendor
}

func (p *Plugin) Identity() cpuid.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

func (p *Plugin) Platform() platform.Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.platform
}

// Service returns the SMU service, or nil before Attach succeeds.
func (p *Plugin) Service() *smu.Service {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.service
}

// PMTable returns the table and the pipeline that set it up. Either is nil when the
// platform has no PM table or setup failed.
func (p *Plugin) PMTable() (*pmtable.Table, *pmtable.Pipeline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table, p.pipeline
}

// View returns the mapped PM table, or nil when it isn't mapped.
func (p *Plugin) View() *pmtable.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// CPPC returns the decoded _CPC package, or nil.
func (p *Plugin) CPPC() *cppc.Capabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cppc
}
