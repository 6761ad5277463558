package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odelab/internal/api"
	"github.com/san-kum/odelab/internal/cas"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/solver"
)

type cannedExplainer struct {
	text string
	err  error
}

func (c cannedExplainer) Explain(context.Context, string) (string, error) { return c.text, c.err }

type brokenSolver struct{}

func (brokenSolver) Solve(context.Context, solver.Request) (*solver.Result, error) {
	return nil, errors.New("disk on fire")
}

func (brokenSolver) SolveSystem(context.Context, solver.SystemRequest) (*solver.Result, error) {
	return nil, &solver.Error{Category: solver.Internal, Err: errors.New("unexpected state")}
}

func (brokenSolver) Validate(context.Context, solver.ValidateRequest) (string, error) {
	return "", nil
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
	return out
}

var _ = Describe("Handler", func() {
	var (
		router    http.Handler
		explainer cannedExplainer
		logger    *slog.Logger
	)

	build := func() {
		svc := solver.NewService(logger, cas.New(), explainer, solver.DefaultOptions())
		router = api.NewHandler(svc, logger).Routes()
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		explainer = cannedExplainer{text: "The solution satisfies the equation."}
		build()
	})

	It("reports health", func() {
		rec := do(router, http.MethodGet, "/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decodeBody(rec)).To(HaveKeyWithValue("status", "ok"))
	})

	It("tags responses with a request id", func() {
		rec := do(router, http.MethodGet, "/health", "")
		_, err := uuid.Parse(rec.Header().Get(api.RequestIDHeader))
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps a well-formed incoming request id", func() {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(api.RequestIDHeader, id)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Header().Get(api.RequestIDHeader)).To(Equal(id))
	})

	It("lists presets", func() {
		rec := do(router, http.MethodGet, "/presets", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var presets []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &presets)).To(Succeed())
		Expect(presets).To(HaveLen(len(config.Presets)))
		Expect(presets[0]).To(HaveKey("name"))
		Expect(presets[0]).To(HaveKey("equation"))
	})

	Describe("POST /solve", func() {
		It("returns a numeric trace", func() {
			rec := do(router, http.MethodPost, "/solve", `{
				"equation": "dy/dx = x*y",
				"method": "numeric-rk4",
				"initial_conditions": {"x0": 0, "y0": 1},
				"step": 0.1,
				"steps": 10
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := decodeBody(rec)
			Expect(body).To(HaveKey("request_id"))
			Expect(body["method"]).To(Equal("numeric-rk4"))
			trace := body["numeric_trace"].([]any)
			Expect(trace).To(HaveLen(11))
			first := trace[0].(map[string]any)
			Expect(first["x"]).To(BeNumerically("==", 0))
			Expect(first["y"]).To(BeNumerically("==", 1))
		})

		It("returns a closed form with its narrative", func() {
			rec := do(router, http.MethodPost, "/solve", `{"equation": "y' + 2*y = 4*x", "strategy": "linear"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			body := decodeBody(rec)
			Expect(body["strategy"]).To(Equal("linear"))
			Expect(body["solutions"]).To(HaveLen(1))
			Expect(body["steps"]).To(HaveLen(3))
		})

		It("attaches an explanation when asked", func() {
			rec := do(router, http.MethodPost, "/solve", `{"equation": "y' = y", "explain": true}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decodeBody(rec)).To(HaveKeyWithValue("explanation", "The solution satisfies the equation."))
		})

		DescribeTable("maps failures to status and category",
			func(body string, status int, category solver.Category) {
				rec := do(router, http.MethodPost, "/solve", body)
				Expect(rec.Code).To(Equal(status))
				out := decodeBody(rec)
				Expect(out["category"]).To(Equal(string(category)))
				Expect(out).To(HaveKey("request_id"))
			},
			Entry("missing equation", `{}`, http.StatusBadRequest, solver.EmptyInput),
			Entry("blank equation", `{"equation": "  "}`, http.StatusBadRequest, solver.EmptyInput),
			Entry("malformed equation", `{"equation": "y' = x +"}`, http.StatusBadRequest, solver.MalformedEquation),
			Entry("malformed clause", `{"equation": "y' = y; y(0)=1; y'(0)"}`, http.StatusBadRequest, solver.MalformedInitialCondition),
			Entry("zero steps", `{"equation": "y' = y; y(0)=1", "method": "numeric-euler", "steps": 0}`, http.StatusBadRequest, solver.InvalidStepParameters),
			Entry("unknown strategy", `{"equation": "y' = y", "strategy": "magic"}`, http.StatusBadRequest, solver.Precondition),
			Entry("not explicit", `{"equation": "sin(y') = x; y(0)=1", "method": "numeric-rk4"}`, http.StatusUnprocessableEntity, solver.NotExplicitForm),
			Entry("no closed form", `{"equation": "y' = sin(x*y)"}`, http.StatusUnprocessableEntity, solver.ExternalSolveFailure),
			Entry("bad json", `{"equation": `, http.StatusBadRequest, solver.Precondition),
		)

		It("names the offending fragment", func() {
			rec := do(router, http.MethodPost, "/solve", `{"equation": "y' = y; y(0)=1; y'(0)"}`)
			Expect(decodeBody(rec)).To(HaveKeyWithValue("fragment", "y'(0)"))
		})
	})

	Describe("POST /solve/system", func() {
		It("integrates the system", func() {
			rec := do(router, http.MethodPost, "/solve/system", `{
				"equations": ["y1' = y2", "y2' = -y1"],
				"initial_conditions": {"x0": 0, "system": [0, 1]},
				"steps": 5
			}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			trace := decodeBody(rec)["numeric_trace"].([]any)
			Expect(trace).To(HaveLen(6))
			Expect(trace[0].(map[string]any)).To(HaveKeyWithValue("y2", BeNumerically("==", 1)))
		})

		It("rejects an empty equation list", func() {
			rec := do(router, http.MethodPost, "/solve/system", `{"equations": []}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /validate", func() {
		It("returns feedback", func() {
			rec := do(router, http.MethodPost, "/validate", `{"equation": "y' = y", "proposed_solution": "y = C1*exp(x)"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decodeBody(rec)).To(HaveKeyWithValue("feedback", "The solution satisfies the equation."))
		})

		It("reports explainer failure as unprocessable", func() {
			explainer = cannedExplainer{err: errors.New("quota")}
			build()
			rec := do(router, http.MethodPost, "/validate", `{"equation": "y' = y", "proposed_solution": "y = 1"}`)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(decodeBody(rec)["category"]).To(Equal(string(solver.ExternalSolveFailure)))
		})

		It("requires a proposed solution", func() {
			rec := do(router, http.MethodPost, "/validate", `{"equation": "y' = y"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("unclassified failures", func() {
		BeforeEach(func() {
			router = api.NewHandler(brokenSolver{}, logger).Routes()
		})

		It("hides raw errors behind a 500", func() {
			rec := do(router, http.MethodPost, "/solve", `{"equation": "y' = y"}`)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			body := decodeBody(rec)
			Expect(body["category"]).To(Equal(string(solver.Internal)))
			Expect(body["error"]).To(Equal("internal error"))
		})

		It("maps the internal category to a 500", func() {
			rec := do(router, http.MethodPost, "/solve/system", `{"equations": ["y1' = y1"]}`)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	It("maps every category to a status", func() {
		Expect(api.StatusFor(solver.EmptyInput)).To(Equal(http.StatusBadRequest))
		Expect(api.StatusFor(solver.UnsupportedOrder)).To(Equal(http.StatusBadRequest))
		Expect(api.StatusFor(solver.NotExplicitForm)).To(Equal(http.StatusUnprocessableEntity))
		Expect(api.StatusFor(solver.Internal)).To(Equal(http.StatusInternalServerError))
	})
})
