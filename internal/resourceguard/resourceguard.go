// Package resourceguard provides connection admission control: a global
// token-bucket limiter over accept rate, and a periodic CPU/RSS sampler used
// to reject new connections while the process is overloaded.
//
// This is a deliberately trimmed adaptation of the teacher's ResourceGuard
// (internal/shared/limits/resource_guard.go) and ContainerCPU
// (internal/single/platform/cgroup_cpu.go): the Kafka/broadcast rate
// limiters and cgroup-file parsing are dropped (no Kafka fan-out and no
// container cgroup assumption in this server), in favor of gopsutil's
// process-relative CPU and memory sampling. It is explicitly an ambient
// admission-control concern, separate from the per-session flow control the
// protocol itself deliberately omits.
package resourceguard

import (
	"context"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/adred-codev/cloudvar/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/time/rate"
)

// Guard admits or rejects new connections based on accept-rate, per-IP
// rate, and process resource usage.
type Guard struct {
	accept *rate.Limiter
	perIP  *IPLimiter

	cpuRejectThreshold float64
	proc               *process.Process

	cpuPercent atomic.Uint64 // math.Float64bits
	rssBytes   atomic.Uint64

	logger zerolog.Logger
}

// Config configures a Guard.
type Config struct {
	AcceptsPerSec      float64
	AcceptBurst        int
	CPURejectThreshold float64 // 0-100; 0 disables the CPU check

	IPBurst int     // max burst connections per source IP
	IPRate  float64 // sustained connections/sec per source IP
}

// New builds a Guard sampling the current OS process.
func New(cfg Config, logger zerolog.Logger) (*Guard, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	if cfg.IPBurst == 0 {
		cfg.IPBurst = 10
	}
	if cfg.IPRate == 0 {
		cfg.IPRate = 1.0
	}
	g := &Guard{
		accept:             rate.NewLimiter(rate.Limit(cfg.AcceptsPerSec), cfg.AcceptBurst),
		perIP:              NewIPLimiter(cfg.IPBurst, cfg.IPRate),
		cpuRejectThreshold: cfg.CPURejectThreshold,
		proc:               proc,
		logger:             logger,
	}
	return g, nil
}

// AllowAccept reports whether a new connection attempt from ip may proceed,
// given the current accept-rate budgets and the last resource sample.
func (g *Guard) AllowAccept(ip string) (ok bool, reason string) {
	if g.cpuRejectThreshold > 0 {
		if cpu := g.CPUPercent(); cpu >= g.cpuRejectThreshold {
			return false, "cpu_overload"
		}
	}
	if !g.accept.Allow() {
		return false, "rate_limited"
	}
	if ip != "" && !g.perIP.Allow(ip) {
		return false, "ip_rate_limited"
	}
	return true, ""
}

// CPUPercent returns the last sampled process CPU usage percentage.
func (g *Guard) CPUPercent() float64 {
	return math.Float64frombits(g.cpuPercent.Load())
}

// RSSBytes returns the last sampled process resident set size.
func (g *Guard) RSSBytes() uint64 {
	return g.rssBytes.Load()
}

// Run samples CPU and memory at interval until ctx is cancelled. It is meant
// to run in its own goroutine, independent of the engine goroutine.
func (g *Guard) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sample(ctx)
		}
	}
}

func (g *Guard) sample(ctx context.Context) {
	if pct, err := g.proc.CPUPercentWithContext(ctx); err == nil {
		g.cpuPercent.Store(math.Float64bits(pct))
		metrics.CPUPercent.Set(pct)
	} else {
		g.logger.Warn().Err(err).Msg("resourceguard: CPU sample failed")
	}

	if mem, err := g.proc.MemoryInfoWithContext(ctx); err == nil {
		g.rssBytes.Store(mem.RSS)
		metrics.RSSBytes.Set(float64(mem.RSS))
	} else {
		g.logger.Warn().Err(err).Msg("resourceguard: memory sample failed")
	}
}
