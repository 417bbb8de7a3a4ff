package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with an isolated registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created and registered", func() {
				So(manager, ShouldNotBeNil)
				manager.partitionsProcessed.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom naming options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)
			manager.receiptsResponded.Add(2)

			Convey("Then metric names carry the namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_ns_test_sub_receipts_responded_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording normalization metrics", func() {
			before := gathered("offerlens_attribution_events_normalized_total", "kind", "transaction")
			RecordEventNormalized("transaction")
			RecordEventNormalized("transaction")

			Convey("Then the labelled counter increases", func() {
				after := gathered("offerlens_attribution_events_normalized_total", "kind", "transaction")
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording attribution metrics", func() {
			before := gathered("offerlens_attribution_collisions_resolved_total", "", "")
			RecordCollisionResolved()

			Convey("Then the collision counter increases", func() {
				So(gathered("offerlens_attribution_collisions_resolved_total", "", "")-before, ShouldEqual, 1)
			})
		})

		Convey("When setting gauges", func() {
			UpdateQueueCapacity(64)
			UpdateLastRunCustomers(12)

			Convey("Then they report the last value", func() {
				So(gathered("offerlens_attribution_queue_capacity", "", ""), ShouldEqual, 64)
				So(gathered("offerlens_attribution_last_run_customers", "", ""), ShouldEqual, 12)
			})
		})

		Convey("When recording every helper", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordEventRejected()
					RecordEventDropped("unknown_customer")
					RecordCompletionDuplicate()
					RecordCustomersExcluded("received", 3)
					RecordUnknownOfferReceipt()
					RecordPartitionProcessed()
					RecordCandidateAttributions(4)
					RecordTransactionsAttributed(2)
					RecordReceiptsResponded(2)
					RecordStageLatency("attribute", 1.5)
					RecordRun("ok")
					UpdateQueueSize(1)
					UpdateQueueUtilization(0.5)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerCount(4)
					RecordWorkerProcessingLatency(2)
					RecordWorkerError()
					UpdateRepositoryRecordsTotal(10)
					RecordRepositoryQueryLatency(0.1)
					RecordHTTPRequest("customers", "GET", "200")
					RecordHTTPRequestDuration("customers", "GET", "200", 3)
					RecordErrorByComponent("worker", "attribution_error")
				}, ShouldNotPanic)
			})
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

// gathered reads a counter or gauge value from the global registry. An empty
// label name matches the first series.
func gathered(name, label, value string) float64 {
	families, err := GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label != "" {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == label && lp.GetValue() == value {
						found = true
					}
				}
				if !found {
					continue
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}
