package memcachedb

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	methodNameLabel   = "method_name"
	isSuccessfulLabel = "is_successful"
	serverAddrLabel   = "server_addr"
)

var (
	methodDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "memcachedb_method_duration_seconds",
		Help: "execution time of successful and failed memcachedb client methods",
		Buckets: []float64{
			0.0005, 0.001, 0.005, 0.007, 0.015, 0.05, 0.1, 0.2, 0.5, 1,
		},
	}, []string{methodNameLabel, isSuccessfulLabel})

	quarantinedServers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "memcachedb_quarantined_servers",
		Help: "1 while a server endpoint is quarantined after being marked dead, 0 otherwise",
	}, []string{serverAddrLabel})
)

// observeMethodDurationSeconds records one method invocation's duration.
func observeMethodDurationSeconds(methodName string, duration float64, isSuccessful bool) {
	flag := "0"
	if isSuccessful {
		flag = "1"
	}
	methodDurationSeconds.WithLabelValues(methodName, flag).Observe(duration)
}

// setQuarantined records an endpoint's quarantine state for the gauge.
func setQuarantined(addr string, quarantined bool) {
	v := 0.0
	if quarantined {
		v = 1.0
	}
	quarantinedServers.WithLabelValues(addr).Set(v)
}
