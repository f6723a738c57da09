package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/attrition/internal/adapters/http/api"
	"github.com/okian/attrition/internal/adapters/http/swagger"
	app "github.com/okian/attrition/internal/app"
	"github.com/okian/attrition/internal/config"
	"github.com/okian/attrition/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("ATTRITION_ADDR", ":8080")
			_ = os.Setenv("ATTRITION_QUEUE_SIZE", "1000")
			_ = os.Setenv("ATTRITION_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("ATTRITION_ADDR")
				_ = os.Unsetenv("ATTRITION_QUEUE_SIZE")
				_ = os.Unsetenv("ATTRITION_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When mapping configuration onto options", func() {
			cfg := config.New()
			cfg.Epochs = 7

			convey.Convey("Then a service and server can be built from it", func() {
				svc := app.New(serviceOptions(cfg, logger.Nop())...)
				convey.So(svc, convey.ShouldNotBeNil)
				server := api.NewServer(svc, svc, apiOptions(cfg, logger.Nop())...)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When invalid configuration is given", func() {
			_ = os.Setenv("ATTRITION_ADDR", "")
			defer func() { _ = os.Unsetenv("ATTRITION_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a fully wired mux", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := config.New()
		svc := app.New(serviceOptions(cfg, logger.Nop())...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		api.NewServer(svc, svc, apiOptions(cfg, logger.Nop())...).Register(ctx, mux)

		convey.Convey("Then docs and API routes are served", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/stats", "/healthz", "/importance"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("Then the metrics updaters stop with their context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			svc := app.New()
			convey.So(func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("Then single metric updates do not panic", func() {
			svc := app.New()
			convey.So(func() {
				updateSystemMetrics()
				updateServiceMetrics(svc)
			}, convey.ShouldNotPanic)
		})
	})
}
