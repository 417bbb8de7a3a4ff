package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			err := Init()

			Convey("Then Get returns a usable logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing JSON to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithFormat(FormatJSON)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "pipeline finished", String("run_id", "r-1"), Int("customers", 3), Bool("serve", false))

			Convey("Then the fields and caller appear in the output", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"msg":"pipeline finished"`)
				So(out, ShouldContainSubstring, `"run_id":"r-1"`)
				So(out, ShouldContainSubstring, `"customers":3`)
				So(out, ShouldContainSubstring, `"source":"`)
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging through a named logger with bound fields", func() {
			Named("normalize").With(String("run_id", "r-2")).Warn(ctx, "dropped", Error(errors.New("boom")))

			Convey("Then component and bound fields are present", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"component":"normalize"`)
				So(out, ShouldContainSubstring, `"run_id":"r-2"`)
				So(out, ShouldContainSubstring, `"error":"boom"`)
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")

			Convey("Then info lines are suppressed", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
			})
			SetLevel(slog.LevelInfo)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then known levels are accepted", func() {
			for _, lvl := range []string{"debug", "info", "", "warn", "WARNING", " error "} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Then unknown levels are rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}
