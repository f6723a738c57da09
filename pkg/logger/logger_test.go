package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then Get returns a usable logger", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})
	})
}

func TestLoggerWriter(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, false), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "training finished",
				String("model", "v1"),
				Int("epochs", 50),
				Float64("loss", 0.25),
				Bool("published", true),
				Duration("took", 2*time.Second),
				Error(errors.New("boom")),
			)

			Convey("Then all fields and the caller are written", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "training finished")
				So(out, ShouldContainSubstring, "epochs=50")
				So(out, ShouldContainSubstring, "published=true")
				So(out, ShouldContainSubstring, "took=2s")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then info records are dropped", func() {
				So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When an unknown level is given", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})

	Convey("Given a nil writer", t, func() {
		So(InitWithWriter(nil, true), ShouldNotBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Nop discards without panicking", t, func() {
		So(func() { Nop().Named("x").Error(context.Background(), "nothing") }, ShouldNotPanic)
	})
}
