// Package metrics exports inventory and connectivity gauges in the
// Prometheus text format for node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/clock"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/report"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the uectl gauges on a private prometheus registry so a
// textfile only ever contains our series.
type Registry struct {
	reg *prometheus.Registry

	Resources *prometheus.GaugeVec

	UEUp        *prometheus.GaugeVec
	UEHasVRF    *prometheus.GaugeVec
	UERuleTable *prometheus.GaugeVec
	TableRoutes *prometheus.GaugeVec

	PingLoss *prometheus.GaugeVec
	PingRTT  *prometheus.GaugeVec

	LastRun prometheus.Gauge
}

// New creates a Registry.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}
	factory := promauto.With(r.reg)

	r.Resources = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uectl_resources",
		Help: "Number of live simulator resources by kind",
	}, []string{"kind"})

	r.UEUp = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uectl_ue_up",
		Help: "Whether the UE interface is operationally up (1) or not (0)",
	}, []string{"ue"})

	r.UEHasVRF = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uectl_ue_vrf_present",
		Help: "Whether the UE's VRF device exists",
	}, []string{"ue", "vrf"})

	r.UERuleTable = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uectl_ue_rule_table",
		Help: "Routing table id referenced by the UE's policy rule",
	}, []string{"ue"})

	r.TableRoutes = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uectl_table_routes",
		Help: "Number of routes in a routing table in the managed range",
	}, []string{"table"})

	r.PingLoss = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uectl_ue_ping_loss_percent",
		Help: "Packet loss of the last connectivity probe",
	}, []string{"ue", "target", "via"})

	r.PingRTT = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uectl_ue_ping_rtt_seconds",
		Help: "Average round trip time of the last connectivity probe",
	}, []string{"ue", "target"})

	r.LastRun = factory.NewGauge(prometheus.GaugeOpts{
		Name: "uectl_last_run_timestamp_seconds",
		Help: "Unix time of the last uectl report",
	})

	return r
}

// RecordCounts sets the resource gauges.
func (r *Registry) RecordCounts(c inventory.Counts) {
	r.Resources.WithLabelValues("interfaces").Set(float64(c.Interfaces))
	r.Resources.WithLabelValues("vrfs").Set(float64(c.VRFs))
	r.Resources.WithLabelValues("rules").Set(float64(c.Rules))
	r.Resources.WithLabelValues("tables").Set(float64(c.Tables))
	r.LastRun.Set(float64(clock.Now().Unix()))
}

// RecordSummary sets every gauge derivable from a verify summary.
func (r *Registry) RecordSummary(s *report.Summary) {
	r.RecordCounts(s.Counts)

	for _, ue := range s.UEs {
		up := 0.0
		if ue.State == "UP" {
			up = 1
		}
		r.UEUp.WithLabelValues(ue.Name).Set(up)

		vrf := 0.0
		if ue.HasVRF {
			vrf = 1
		}
		r.UEHasVRF.WithLabelValues(ue.Name, ue.VRF).Set(vrf)

		if ue.HasRule {
			r.UERuleTable.WithLabelValues(ue.Name).Set(float64(ue.RuleTable))
		}

		if ue.Ping != nil {
			r.PingLoss.WithLabelValues(ue.Name, ue.Ping.Target, ue.Ping.Via()).Set(ue.Ping.Loss)
			if ue.Ping.Recv > 0 {
				r.PingRTT.WithLabelValues(ue.Name, ue.Ping.Target).Set(ue.Ping.AvgRtt.Seconds())
			}
		}
	}

	for _, t := range s.Tables {
		r.TableRoutes.WithLabelValues(fmt.Sprint(t.ID)).Set(float64(t.Routes))
	}
}

// WriteTextfile atomically writes the registry to path.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
