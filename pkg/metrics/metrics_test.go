package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

var _ tracking.Recorder = (*Manager)(nil)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithRegistry(registry), WithNamespace("test"))

		So(m.Registry(), ShouldEqual, registry)

		Convey("When frames are processed and skipped", func() {
			m.FrameProcessed(20 * time.Millisecond)
			m.FrameProcessed(40 * time.Millisecond)
			m.FrameSkipped(tracking.SkipNoFace)

			Convey("Then the counters reflect them", func() {
				So(testutil.ToFloat64(m.framesProcessed), ShouldEqual, 2)
				So(testutil.ToFloat64(m.framesSkipped.WithLabelValues(tracking.SkipNoFace)), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.frameLatency), ShouldEqual, 1)
			})
		})

		Convey("When blinks and uncalibrated frames are recorded", func() {
			m.BlinkDetected("single")
			m.BlinkDetected("single")
			m.BlinkDetected("long")
			m.NotCalibrated("1")

			Convey("Then they are labelled", func() {
				So(testutil.ToFloat64(m.blinks.WithLabelValues("single")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.blinks.WithLabelValues("long")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.notCalibrated.WithLabelValues("1")), ShouldEqual, 1)
			})
		})

		Convey("When sessions start and stop", func() {
			m.SessionStarted()
			m.SessionStarted()
			m.SessionStopped()

			Convey("Then the gauge tracks running sessions", func() {
				So(testutil.ToFloat64(m.activeSessions), ShouldEqual, 1)
			})
		})

		Convey("When calibration runs finish", func() {
			m.CalibrationFinished("0", OutcomePersisted, 1.5, 9, 2)
			m.CalibrationFinished("0", OutcomeFailed, 0, 0, 0)

			Convey("Then persisted runs update the quality gauges", func() {
				So(testutil.ToFloat64(m.calibrations.WithLabelValues("0", OutcomePersisted)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.calibrations.WithLabelValues("0", OutcomeFailed)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.calibrationRMS.WithLabelValues("0")), ShouldEqual, 1.5)
				So(testutil.ToFloat64(m.calibrationPoints.WithLabelValues("0")), ShouldEqual, 9)
				So(testutil.ToFloat64(m.fallbackPoints.WithLabelValues("0")), ShouldEqual, 2)
			})
		})

		Convey("When an event stream reports dropped events", func() {
			var dropped int64 = 4
			m.ObserveDroppedEvents(func() int64 { return dropped })
			dropped = 7

			Convey("Then the counter is read at scrape time", func() {
				rec := httptest.NewRecorder()
				m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
				So(rec.Body.String(), ShouldContainSubstring, "test_stream_events_dropped_total 7")
			})
		})

		Convey("When the handler is scraped", func() {
			m.BlinkDetected("double")
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

			Convey("Then it exposes the namespaced series", func() {
				So(rec.Code, ShouldEqual, 200)
				So(strings.Contains(rec.Body.String(), `test_tracking_blinks_total{kind="double"} 1`), ShouldBeTrue)
			})
		})
	})
}

func TestNewManagerDefaults(t *testing.T) {
	Convey("Given two managers with default options", t, func() {
		a := NewManager()
		b := NewManager()

		Convey("Then each has its own registry", func() {
			So(a.Registry(), ShouldNotEqual, b.Registry())
			So(a.namespace, ShouldEqual, "gaze")
		})
	})
}
