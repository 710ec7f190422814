package libvirt

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/metrics"
)

// Probe defaults match a short "ping -c 3 -i 0.1 -W 3".
const (
	DefaultProbeAttempts = 3
	DefaultProbeTimeout  = 3 * time.Second
	DefaultProbeInterval = 100 * time.Millisecond
)

// commandRunner runs an external command and reports only whether it exited
// successfully.
type commandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Prober checks whether a host answers ICMP echo before a hypervisor
// connection is attempted. A dead host fails here in a few seconds instead of
// hanging in the ssh/libvirt connect path.
type Prober struct {
	Attempts int
	Timeout  time.Duration
	Interval time.Duration

	run    commandRunner
	logger *zap.Logger
}

// NewProber returns a Prober using the system ping utility. Zero values fall
// back to the package defaults.
func NewProber(attempts int, timeout, interval time.Duration, logger *zap.Logger) *Prober {
	if attempts <= 0 {
		attempts = DefaultProbeAttempts
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		Attempts: attempts,
		Timeout:  timeout,
		Interval: interval,
		run:      execRunner,
		logger:   logger,
	}
}

// Alive reports whether host answered at least one of the configured probes.
// It never returns an error: an unreachable host is a normal false result.
func (p *Prober) Alive(ctx context.Context, host string) bool {
	alive := isAlive(ctx, p.run, host, p.Attempts, p.Timeout, p.Interval)
	metrics.ObserveProbe(alive)
	if !alive {
		p.logger.Debug("host did not answer probe",
			zap.String("host", host),
			zap.Int("attempts", p.Attempts),
			zap.Duration("timeout", p.Timeout),
		)
	}
	return alive
}

// isAlive sends up to attempts ICMP echo requests to host, each waiting at
// most timeout for a reply, and reports whether any was answered.
func isAlive(ctx context.Context, run commandRunner, host string, attempts int, timeout, interval time.Duration) bool {
	if host == "" || attempts <= 0 {
		return false
	}

	// ping -W takes whole seconds
	waitSecs := int((timeout + time.Second - 1) / time.Second)
	if waitSecs < 1 {
		waitSecs = 1
	}

	// Bound the whole process in case ping ignores its own deadline.
	budget := time.Duration(attempts)*(time.Duration(waitSecs)*time.Second+interval) + time.Second
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	args := []string{
		"-c", strconv.Itoa(attempts),
		"-i", strconv.FormatFloat(interval.Seconds(), 'f', -1, 64),
		"-W", strconv.Itoa(waitSecs),
		host,
	}
	return run(ctx, "ping", args...) == nil
}
