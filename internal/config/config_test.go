package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/offerlens/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxAge, convey.ShouldEqual, 100)
			convey.So(cfg.TieBreak, convey.ShouldEqual, "input_order")
			convey.So(cfg.CohortKeys, convey.ShouldResemble, []string{"gender", "age_range", "income_range", "member_year"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the tie-break policy is unknown", func() {
			cfg.TieBreak = "coin_flip"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When max_age is out of range", func() {
			cfg.MaxAge = 118
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an input path is missing", func() {
			cfg.TranscriptPath = " "
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When serving without an address", func() {
			cfg.Serve = true
			cfg.Addr = ""
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the cohort query is unusable", func() {
			cfg.CohortCondition = "about 1"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the cohort query is exposed", func() {
			q := cfg.CohortQuery()
			convey.So(q.Metric, convey.ShouldEqual, cfg.CohortMetric)
			convey.So(q.Top, convey.ShouldEqual, 10)
		})
	})
}
