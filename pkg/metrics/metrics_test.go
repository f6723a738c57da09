package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("hr"),
				WithSubsystem("risk"),
				WithMetricPrefix("shadow_"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
			)

			Convey("Then the options are applied", func() {
				So(m, ShouldNotBeNil)
				So(m.namespace, ShouldEqual, "hr")
				So(m.subsystem, ShouldEqual, "risk")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 5, 10})
				So(m.customLabels["env"], ShouldEqual, "test")
			})

			Convey("And metrics are registered on the registry", func() {
				m.datasetRecords.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["hr_risk_shadow_dataset_records"], ShouldBeTrue)
			})
		})

		Convey("When invalid option values are given", func() {
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-time.Second),
			)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "attrition")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(m.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording dataset metrics", func() {
			UpdateDatasetSize(10, 8)

			Convey("Then the gauges reflect the values", func() {
				So(testutil.ToFloat64(globalManager.datasetRecords), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.datasetTrainable), ShouldEqual, 8)
			})
		})

		Convey("When recording epochs", func() {
			before := testutil.ToFloat64(globalManager.trainingEpochs)
			RecordEpoch(0.4, 0.8, 0.75)

			Convey("Then the counter increases and gauges are set", func() {
				So(testutil.ToFloat64(globalManager.trainingEpochs), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.trainingLoss), ShouldEqual, 0.4)
				So(testutil.ToFloat64(globalManager.validationAcc), ShouldEqual, 0.75)
			})
		})

		Convey("When recording predictions and fallbacks", func() {
			before := testutil.ToFloat64(globalManager.predictions.WithLabelValues("RULE"))
			RecordPrediction("RULE", "HIGH", 1.5)
			RecordFallback("shape")

			Convey("Then the labelled counters increase", func() {
				So(testutil.ToFloat64(globalManager.predictions.WithLabelValues("RULE")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.fallbacks.WithLabelValues("shape")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("Then the remaining recorders do not panic", func() {
			So(func() {
				RecordDatasetSkipped(2)
				RecordDatasetSkipped(0)
				RecordDatasetLoad("ok")
				RecordTrainingRun("ok", time.Second)
				RecordImportanceLatency(3)
				UpdateBreakerState(2)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessed(0.2)
				RecordWorkerError()
				UpdateRankedEmployees(5)
				RecordRepositoryUpdateLatency(0.1)
				RecordHTTPRequest("predict", "POST", "200")
				RecordHTTPRequestDuration("predict", "POST", "200", 2)
				RecordErrorByComponent("worker", "scoring_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
