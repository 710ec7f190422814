// Package fleet runs domain operations against many (host, uuid) targets at
// once over a bounded worker pool.
package fleet

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/vm"
	"github.com/jbweber/hostvirt/internal/worker"
)

// Target names one domain on one host.
type Target struct {
	Host string `json:"host" yaml:"host"`
	UUID string `json:"uuid" yaml:"uuid"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

func (t Target) String() string {
	if t.Host == "" {
		return "local/" + t.UUID
	}
	return t.Host + "/" + t.UUID
}

// Result is the status of one target.
type Result struct {
	Target     `yaml:",inline"`
	State      vm.State `json:"state" yaml:"state"`
	StateLabel string   `json:"state_label" yaml:"state_label"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// statusReader reports the state of one domain.
type statusReader interface {
	Status(ctx context.Context, host, id string) (vm.State, string, error)
}

// Runner fans status queries out over a worker pool.
type Runner struct {
	vms    statusReader
	pool   *worker.Pool
	logger *zap.Logger
}

// NewRunner returns a Runner querying through vms on pool.
func NewRunner(vms statusReader, pool *worker.Pool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{vms: vms, pool: pool, logger: logger}
}

// Statuses queries every target and returns one Result per target in input
// order. Unreachable hosts and unknown domains are ordinary results. Targets
// whose query failed outright carry the error text in their Result and are
// also collected into the returned *multierror.Error.
func (r *Runner) Statuses(ctx context.Context, targets []Target) ([]Result, error) {
	results := make([]Result, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		results[i].Target = t

		wg.Add(1)
		err := r.pool.Submit(ctx, func(ctx context.Context) {
			defer wg.Done()
			state, label, err := r.vms.Status(ctx, t.Host, t.UUID)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", t, err)
				return
			}
			results[i].State = state
			results[i].StateLabel = label
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("%s: %w", t, err)
		}
	}
	wg.Wait()

	// a task skipped because ctx ended leaves neither a label nor an error
	for i := range results {
		if errs[i] == nil && results[i].StateLabel == "" && ctx.Err() != nil {
			errs[i] = fmt.Errorf("%s: %w", targets[i], ctx.Err())
		}
	}

	var result *multierror.Error
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		results[i].Error = err.Error()
		result = multierror.Append(result, err)
	}

	r.logger.Debug("fleet status complete",
		zap.Int("targets", len(targets)),
		zap.Int("failed", failed),
	)
	return results, result.ErrorOrNil()
}
