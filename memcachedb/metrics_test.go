package memcachedb

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_observeMethodDurationSeconds(t *testing.T) {
	type args struct {
		methodName   string
		duration     float64
		isSuccessful bool
	}
	tests := []struct {
		name string
		args args
	}{
		{
			name: "60 true",
			args: args{
				methodName:   "TestMeth",
				duration:     60 * time.Millisecond.Seconds(),
				isSuccessful: true,
			},
		},
		{
			name: "15 true",
			args: args{
				methodName:   "TestMeth",
				duration:     15 * time.Millisecond.Seconds(),
				isSuccessful: true,
			},
		},
		{
			name: "100 false",
			args: args{
				methodName:   "TestMeth",
				duration:     100 * time.Millisecond.Seconds(),
				isSuccessful: false,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observeMethodDurationSeconds(tt.args.methodName, tt.args.duration, tt.args.isSuccessful)

			var success = "0"
			if tt.args.isSuccessful {
				success = "1"
			}

			_, err := methodDurationSeconds.GetMetricWith(map[string]string{methodNameLabel: tt.args.methodName, isSuccessfulLabel: success})
			assert.Nil(t, err, "GetMetricWith: returned error is not nil - %v", err)
		})
	}
}

func Test_setQuarantined(t *testing.T) {
	const addr = "10.0.0.1:21201"

	setQuarantined(addr, true)
	g, err := quarantinedServers.GetMetricWith(map[string]string{serverAddrLabel: addr})
	assert.Nil(t, err, "GetMetricWith: returned error is not nil - %v", err)
	assert.Equal(t, float64(1), testutil.ToFloat64(g))

	setQuarantined(addr, false)
	assert.Equal(t, float64(0), testutil.ToFloat64(g))
}
