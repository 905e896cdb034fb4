package health

import (
	"context"
	"sync"
	"time"

	corehealth "3tcapital/ms_ewaybill_core/internal/core/health"
)

const probeTimeout = 2 * time.Second

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Probe checks one dependency. A failing critical probe takes the service
// DOWN; a failing non-critical one only degrades it.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Service exposes health-check use cases to adapters.
type Service struct {
	meta      Metadata
	probes    []Probe
	startedAt time.Time
}

func NewService(meta Metadata, probes ...Probe) *Service {
	return &Service{
		meta:      meta,
		probes:    probes,
		startedAt: time.Now().UTC(),
	}
}

// Status runs every probe concurrently and returns the availability snapshot.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StateUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}
	if len(s.probes) == 0 {
		return status
	}

	deps := make([]corehealth.Dependency, len(s.probes))
	var wg sync.WaitGroup
	for i, probe := range s.probes {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			deps[i] = run(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	for _, dep := range deps {
		if dep.Status == corehealth.StateUp {
			continue
		}
		if dep.Critical {
			status.Status = corehealth.StateDown
		} else if status.Status == corehealth.StateUp {
			status.Status = corehealth.StateDegraded
		}
	}
	status.Dependencies = deps
	return status
}

func run(ctx context.Context, probe Probe) corehealth.Dependency {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := probe.Check(ctx)
	dep := corehealth.Dependency{
		Name:      probe.Name,
		Status:    corehealth.StateUp,
		Critical:  probe.Critical,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		dep.Status = corehealth.StateDown
		dep.Error = err.Error()
	}
	return dep
}
