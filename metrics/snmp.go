package metrics

import (
	"fmt"
	"sync"

	"github.com/gosnmp/gosnmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sam80180/stardb-exporter/internal/helper"
	mysnmp "github.com/sam80180/stardb-exporter/snmp"
	"github.com/slayercat/GoSNMPServer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// SNMPRecorder mirrors the otel counters into prometheus vectors the SNMP agent can read synchronously.
type SNMPRecorder struct {
	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	labels   map[string]string
} // end type

func NewSnmpRecorder() *SNMPRecorder {
	r := &SNMPRecorder{
		counters: map[string]*prometheus.CounterVec{},
		labels: map[string]string{
			METRIC_DATAGRAMS: "device",
			METRIC_BYTES:     "device",
			METRIC_RESTARTS:  "device",
			METRIC_COMMANDS:  "kind",
			METRIC_MISSES:    "kind",
		},
	}
	for name, label := range r.labels {
		r.counters[name] = prometheus.NewCounterVec(prometheus.CounterOpts{Name: promName(name)}, []string{label})
	} // end for
	return r
} // end NewSnmpRecorder()

func promName(otelName string) string {
	b := []byte(otelName)
	for i, c := range b {
		if c == '.' {
			b[i] = '_'
		} // end if
	} // end for
	return string(b)
} // end promName()

// OnTick copies cumulative sums from a collection into the counters.
func (that *SNMPRecorder) OnTick(rm *metricdata.ResourceMetrics) {
	that.mu.Lock()
	defer that.mu.Unlock()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			cv, has := that.counters[m.Name]
			if !has {
				continue
			} // end if
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			} // end if
			for _, dp := range sum.DataPoints {
				label := "none"
				if v, bOk := dp.Attributes.Value(attribute.Key(that.labels[m.Name])); bOk {
					label = v.Emit()
				} // end if
				prev, err := helper.GetCounterValue(cv, label)
				if err != nil {
					continue
				} // end if
				if delta := float64(dp.Value) - prev; delta > 0 {
					cv.WithLabelValues(label).Add(delta)
				} // end if
			} // end for
		} // end for
	} // end for
} // end OnTick()

func (that *SNMPRecorder) Total(name string) float64 {
	that.mu.Lock()
	defer that.mu.Unlock()
	cv, has := that.counters[name]
	if !has {
		return 0
	} // end if
	return helper.SumCounterVec(cv)
} // end Total()

func (that *SNMPRecorder) Value(name, label string) float64 {
	that.mu.Lock()
	defer that.mu.Unlock()
	cv, has := that.counters[name]
	if !has {
		return 0
	} // end if
	v, _ := helper.GetCounterValue(cv, label)
	return v
} // end Value()

func (that *SNMPRecorder) OIDs() []*GoSNMPServer.PDUValueControlItem {
	items := []*GoSNMPServer.PDUValueControlItem{
		{
			Document: "totalTraffic", // kilobytes
			OID:      fmt.Sprintf("%s.2.1.0", mysnmp.APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				return int(that.Total(METRIC_BYTES) / 1024), nil
			},
			Type: gosnmp.Integer,
		},
		{
			Document: "totalAccess",
			OID:      fmt.Sprintf("%s.2.2.0", mysnmp.APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				return uint32(that.Total(METRIC_DATAGRAMS)), nil
			},
			Type: gosnmp.Counter32,
		},
		{
			Document: "sessionRestarts",
			OID:      fmt.Sprintf("%s.9.1.0", mysnmp.APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				return uint32(that.Total(METRIC_RESTARTS)), nil
			},
			Type: gosnmp.Counter32,
		},
		{
			Document: "joinMisses",
			OID:      fmt.Sprintf("%s.9.2.0", mysnmp.APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				return uint32(that.Total(METRIC_MISSES)), nil
			},
			Type: gosnmp.Counter32,
		},
	}
	for i, kind := range []string{"achievements", "artifacts", "other"} {
		items = append(items, &GoSNMPServer.PDUValueControlItem{
			Document: fmt.Sprintf("commands_%s", kind),
			OID:      fmt.Sprintf("%s.9.3.%d.0", mysnmp.APACHE2_MIB_OID_PREFIX, i+1),
			OnGet: func() (value any, err error) {
				return uint32(that.Value(METRIC_COMMANDS, kind)), nil
			},
			Type: gosnmp.Counter32,
		})
	} // end for
	return items
} // end OIDs()
