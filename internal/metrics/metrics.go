// Package metrics holds the Prometheus collectors hostvirt records into.
//
// Collectors are registered on Registry rather than the global default so
// that embedding programs decide whether and where to expose them.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	labelOperation = "operation"
	labelResult    = "result"
	labelCode      = "code"
	labelState     = "state"
)

// Operation results.
const (
	ResultSuccess  = "success"
	ResultNoop     = "noop"
	ResultDeclined = "declined"
	ResultError    = "error"
)

// Registry is the registry every hostvirt collector is registered on.
var Registry = prometheus.NewRegistry()

var operations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "hostvirt_operations_total",
	Help: "Control operations issued against hypervisors, by operation and result",
}, []string{labelOperation, labelResult})

var nativeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "hostvirt_native_errors_total",
	Help: "Native libvirt errors seen, by libvirt error code",
}, []string{labelCode})

var probes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "hostvirt_host_probes_total",
	Help: "Host reachability probes, by result",
}, []string{labelResult})

var domainStates = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "hostvirt_domain_status_total",
	Help: "Domain status observations, by reported state",
}, []string{labelState})

func init() {
	Registry.MustRegister(operations, nativeErrors, probes, domainStates)
}

// ObserveOperation counts one operation outcome.
func ObserveOperation(op, result string) {
	operations.WithLabelValues(op, result).Inc()
}

// ObserveNativeError counts a native libvirt error code.
func ObserveNativeError(code uint32) {
	nativeErrors.WithLabelValues(strconv.FormatUint(uint64(code), 10)).Inc()
}

// ObserveProbe counts a reachability probe outcome.
func ObserveProbe(alive bool) {
	if alive {
		probes.WithLabelValues("alive").Inc()
		return
	}
	probes.WithLabelValues("down").Inc()
}

// ObserveDomainState counts a status observation for a state label.
func ObserveDomainState(state string) {
	domainStates.WithLabelValues(state).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
