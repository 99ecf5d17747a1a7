package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a text logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info", func() {
			Get().Info(ctx, "stage finished", String("stage", "normalize"), Int("rows", 1000))

			Convey("Then the fields and the caller are present", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "stage finished")
				So(out, ShouldContainSubstring, "stage=normalize")
				So(out, ShouldContainSubstring, "rows=1000")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When debug is below the level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "visible")
			_ = SetLevelString("info")

			Convey("Then debug lines appear", func() {
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When a logger carries fields", func() {
			Get().With(String("run_id", "abc")).Named("pipeline").Warn(ctx, "zero variance")

			Convey("Then every line includes them", func() {
				So(buf.String(), ShouldContainSubstring, "run_id=abc")
				So(buf.String(), ShouldContainSubstring, "pipeline.source=")
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithOutput(&buf)), ShouldBeNil)

		Get().Error(context.Background(), "render failed", Float64("score", -0.12), Bool("ok", false))

		Convey("Then each line is a JSON object", func() {
			line := strings.TrimSpace(buf.String())
			var m map[string]any
			So(json.Unmarshal([]byte(line), &m), ShouldBeNil)
			So(m["msg"], ShouldEqual, "render failed")
			So(m["level"], ShouldEqual, "ERROR")
			So(m["score"], ShouldEqual, -0.12)
			So(m["ok"], ShouldEqual, false)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		So(SetLevelString("warning"), ShouldBeNil)
		So(SetLevelString("error"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}
