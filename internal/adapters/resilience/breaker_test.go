package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/attrition/internal/adapters/resilience"
	"github.com/okian/attrition/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBreaker(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	Convey("Given a breaker that trips after two failures", t, func() {
		b := resilience.New(
			resilience.WithMaxFailures(2),
			resilience.WithTimeout(20*time.Millisecond),
			resilience.WithLogger(logger.Nop()),
		)
		So(b.State(), ShouldEqual, "closed")

		Convey("When calls succeed", func() {
			v, err := b.Execute(ctx, func() (float64, error) { return 0.7, nil })

			Convey("Then results pass through", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0.7)
			})
		})

		Convey("When calls keep failing", func() {
			_, err1 := b.Execute(ctx, func() (float64, error) { return 0, boom })
			_, err2 := b.Execute(ctx, func() (float64, error) { return 0, boom })
			called := false
			_, err3 := b.Execute(ctx, func() (float64, error) { called = true; return 1, nil })

			Convey("Then the breaker opens and short-circuits", func() {
				So(errors.Is(err1, boom), ShouldBeTrue)
				So(errors.Is(err2, boom), ShouldBeTrue)
				So(errors.Is(err3, resilience.ErrOpen), ShouldBeTrue)
				So(called, ShouldBeFalse)
				So(b.State(), ShouldEqual, "open")
			})

			Convey("Then it recovers after the timeout", func() {
				time.Sleep(40 * time.Millisecond)
				v, err := b.Execute(ctx, func() (float64, error) { return 0.2, nil })
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0.2)
				So(b.State(), ShouldEqual, "closed")
			})
		})

		Convey("When the context is already canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := b.Execute(cctx, func() (float64, error) { return 1, nil })

			Convey("Then the call is not attempted", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
