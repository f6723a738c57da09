package api_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/attrition/internal/adapters/http/api"
	"github.com/okian/attrition/internal/adapters/storage"
	service "github.com/okian/attrition/internal/app"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const header = "EmployeeNumber,Age,Attrition,Department,MonthlyIncome,YearsAtCompany," +
	"JobSatisfaction,EnvironmentSatisfaction,WorkLifeBalance,DistanceFromHome,OverTime," +
	"StockOptionLevel,MaritalStatus,JobRole\n"

func employeesCSV(n int) string {
	var b strings.Builder
	b.WriteString(header)
	for i := 1; i <= n; i++ {
		if i%4 == 0 {
			fmt.Fprintf(&b, "E%03d,23,Yes,Sales,2100,1,1,1,1,22,Yes,0,Single,Sales Representative\n", i)
		} else {
			fmt.Fprintf(&b, "E%03d,%d,No,Research & Development,%d,9,4,4,3,2,No,1,Married,Research Scientist\n", i, 38+i%10, 9500+i)
		}
	}
	return b.String()
}

type harness struct {
	svc *service.Service
	mux *http.ServeMux
}

func newHarness(opts ...api.Option) *harness {
	cfg := classifier.DefaultConfig()
	cfg.Epochs = 3
	cfg.HiddenLayers = []int{4}
	svc := service.New(service.WithWorkerCount(2), service.WithTrainingConfig(cfg))
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(context.Background(), mux)
	return &harness{svc: svc, mux: mux}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newHarness()
		defer h.svc.Stop()

		Convey("Then health serves Prometheus metrics", func() {
			w := h.do("GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are JSON", func() {
			w := h.do("GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then stats can be narrowed to named keys", func() {
			w := h.do("GET", "/stats?keys=started,%20modelTrained,nope", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body, ShouldHaveLength, 2)
			So(body["modelTrained"], ShouldEqual, false)
		})

		Convey("Then unknown paths and wrong methods are 404", func() {
			So(h.do("GET", "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(h.do("GET", "/predict", "").Code, ShouldEqual, http.StatusNotFound)
			So(h.do("PUT", "/train", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then dataset reads before upload conflict", func() {
			w := h.do("GET", "/dataset/summary", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "no_dataset")

			So(h.do("GET", "/analysis", "").Code, ShouldEqual, http.StatusConflict)
			So(h.do("POST", "/train", "").Code, ShouldEqual, http.StatusConflict)
			So(h.do("POST", "/score", "").Code, ShouldEqual, http.StatusConflict)
		})

		Convey("Then importance falls back to the default table", func() {
			w := h.do("GET", "/importance", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["trained"], ShouldEqual, false)
			So(len(body["importance"].([]any)), ShouldEqual, 10)
		})

		Convey("Then GET /train without a job is 404", func() {
			w := h.do("GET", "/train", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "no_training_job")
		})
	})
}

func TestDatasetEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		h := newHarness()
		defer h.svc.Stop()

		Convey("When a CSV is uploaded", func() {
			w := h.do("POST", "/dataset", employeesCSV(20))

			Convey("Then the load report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				report := decode(w)["report"].(map[string]any)
				So(report["loaded"], ShouldEqual, 20.0)
				So(report["trainable"], ShouldEqual, 20.0)
			})

			Convey("Then summary and analysis are served", func() {
				w := h.do("GET", "/dataset/summary", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["attrition_count"], ShouldEqual, 5.0)

				w = h.do("GET", "/analysis", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w), ShouldContainKey, "by_department")
			})
		})

		Convey("When a CSV without the required columns is uploaded", func() {
			w := h.do("POST", "/dataset", "Name,Salary\nann,10\n")

			Convey("Then it is rejected as a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the upload exceeds the size limit", func() {
			small := newHarness(api.WithMaxUploadBytes(64))
			defer small.svc.Stop()
			w := small.do("POST", "/dataset", employeesCSV(20))

			Convey("Then it is rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})
	})
}

func TestPredictEndpoint(t *testing.T) {
	Convey("Given an API server without a model", t, func() {
		h := newHarness(api.WithPredictRateLimit(1, 1))
		defer h.svc.Stop()

		Convey("When predicting a high-risk profile", func() {
			w := h.do("POST", "/predict", `{"age":25,"monthly_income":3000,"overtime":"Yes","badge_color":"blue"}`)

			Convey("Then the rule scorer answers with explanation", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["source"], ShouldEqual, "RULE")
				So(body["level"], ShouldEqual, "HIGH")
				So(body["flagged"], ShouldEqual, true)
				So(body["recommended_action"], ShouldNotBeEmpty)
				So(len(body["factors"].([]any)), ShouldEqual, 3)
			})

			Convey("And the next request inside the window is rate limited", func() {
				w := h.do("POST", "/predict", `{"age":40}`)
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})

		Convey("When the body is not JSON", func() {
			w := h.do("POST", "/predict", `age=25`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestTrainEndpoints(t *testing.T) {
	Convey("Given an API server with a dataset", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		So(h.do("POST", "/dataset", employeesCSV(40)).Code, ShouldEqual, http.StatusOK)

		Convey("When training is started", func() {
			w := h.do("POST", "/train", "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(decode(w)["state"], ShouldEqual, "running")

			var state any
			deadline := time.Now().Add(30 * time.Second)
			for time.Now().Before(deadline) {
				state = decode(h.do("GET", "/train", ""))["state"]
				if state != "running" {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			Convey("Then the job completes and the model is used", func() {
				So(state, ShouldEqual, "succeeded")

				imp := decode(h.do("GET", "/importance", ""))
				So(imp["trained"], ShouldEqual, true)

				body := decode(h.do("POST", "/predict", `{"age":23,"monthly_income":2100,"overtime":"Yes"}`))
				So(body["source"], ShouldEqual, "MODEL")
			})

			Convey("And canceling a finished job is 404", func() {
				So(h.do("DELETE", "/train", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRankingEndpoints(t *testing.T) {
	Convey("Given an API server with a scored dataset", t, func() {
		h := newHarness(api.WithMaxRankingLimit(50))
		defer h.svc.Stop()
		So(h.do("POST", "/dataset", employeesCSV(20)).Code, ShouldEqual, http.StatusOK)

		w := h.do("POST", "/score", "")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(decode(w)["scored"], ShouldEqual, 20.0)

		Convey("Then the ranking lists leavers first", func() {
			w := h.do("GET", "/ranking?limit=5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 5)
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[0].Department, ShouldEqual, "Sales")
		})

		Convey("Then the default limit is 10", func() {
			var entries []api.Entry
			So(json.Unmarshal(h.do("GET", "/ranking", "").Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 10)
		})

		Convey("Then bad limits are rejected", func() {
			So(h.do("GET", "/ranking?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(h.do("GET", "/ranking?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			w := h.do("GET", "/ranking?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("Then single employees can be looked up", func() {
			w := h.do("GET", "/ranking/E004", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["level"], ShouldEqual, "HIGH")

			So(h.do("GET", "/ranking/E999", "").Code, ShouldEqual, http.StatusNotFound)
			So(h.do("GET", "/ranking/", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then the high-risk export is a CSV download", func() {
			w := h.do("GET", "/export/high-risk", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
			So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "high_risk_employees.csv")

			rows, err := csv.NewReader(w.Body).ReadAll()
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 6)
			So(rows[0], ShouldResemble, []string{"EmployeeID", "Department", "JobRole", "Age", "MonthlyIncome", "RiskScore", "RecommendedAction"})
		})
	})
}

func TestModelEndpoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given an API server without a model registry", t, func() {
		h := newHarness()
		defer h.svc.Stop()

		Convey("Then model management conflicts", func() {
			w := h.do("GET", "/models", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "no_registry")
			So(h.do("POST", "/models/v1/activate", "").Code, ShouldEqual, http.StatusConflict)
		})
	})

	Convey("Given an API server over a SQLite registry with two versions", t, func() {
		reg, err := storage.Open(ctx, filepath.Join(t.TempDir(), "models.db"))
		So(err, ShouldBeNil)
		defer reg.Close()

		cfg := classifier.DefaultConfig()
		cfg.Epochs = 2
		cfg.HiddenLayers = []int{4}
		svc := service.New(service.WithRegistry(reg), service.WithTrainingConfig(cfg))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		h := &harness{svc: svc, mux: mux}

		So(h.do("POST", "/dataset", employeesCSV(20)).Code, ShouldEqual, http.StatusOK)
		first, err := svc.Train(ctx)
		So(err, ShouldBeNil)
		_, err = svc.Train(ctx)
		So(err, ShouldBeNil)

		Convey("Then versions are listed newest first", func() {
			w := h.do("GET", "/models?limit=5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			models := decode(w)["models"].([]any)
			So(len(models), ShouldEqual, 2)
			So(models[0].(map[string]any)["active"], ShouldEqual, true)
			So(models[1].(map[string]any)["id"], ShouldEqual, first.Version)

			So(h.do("GET", "/models?limit=x", "").Code, ShouldEqual, http.StatusBadRequest)
			So(h.do("POST", "/models", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the first version is activated", func() {
			w := h.do("POST", "/models/"+first.Version+"/activate", "")

			Convey("Then it becomes the served model", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["model_version"], ShouldEqual, first.Version)
				So(decode(h.do("GET", "/importance", ""))["model_version"], ShouldEqual, first.Version)
			})
		})

		Convey("Then bad activation requests are rejected", func() {
			So(h.do("POST", "/models/missing/activate", "").Code, ShouldEqual, http.StatusNotFound)
			So(h.do("POST", "/models/v1", "").Code, ShouldEqual, http.StatusNotFound)
			So(h.do("GET", "/models/v1/activate", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
