package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"citizenly-registry/internal/metrics"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux (no third-party
// router dependency) and adds panic recovery, access logging and
// Prometheus instrumentation around every handler.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler supports the http.Handler interface (used for /metrics).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic while handling request",
				zap.Any("panic", p),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
			)
			writeJSON(rec, http.StatusInternalServerError, envelope{Error: &errorBody{
				Code:    "internal_error",
				Message: "internal server error",
			}})
		}

		route := routeLabel(req.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(route, req.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

		r.logger.Debug("Request handled",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	r.mux.ServeHTTP(rec, req)
}

// routeLabel collapses a request path to its first segment so metric
// cardinality stays bounded (ids and codes never appear as labels).
func routeLabel(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	return "/" + path
}

// RegisterAuthRoutes mounts signup, login and the profile endpoint.
// Only /auth/me requires a token.
func (r *Router) RegisterAuthRoutes(h *AuthHandler, mw *AuthMiddleware) {
	r.Handle("/auth/signup", methodOnly(http.MethodPost, h.Signup))
	r.Handle("/auth/login", methodOnly(http.MethodPost, h.Login))
	r.Handle("/auth/me", mw.RequireAuth(methodOnly(http.MethodGet, h.Me)))
}

// RegisterResidentRoutes mounts the resident CRUD surface, the
// migration sub-resource and the workbook export/import endpoints.
func (r *Router) RegisterResidentRoutes(h *ResidentHandler, mw *AuthMiddleware) {
	r.Handle("/residents", mw.RequireAuth(h.ServeCollection))
	r.Handle("/residents/", mw.RequireAuth(h.ServeItem))
}

func (r *Router) RegisterHouseholdRoutes(h *HouseholdHandler, mw *AuthMiddleware) {
	r.Handle("/households", mw.RequireAuth(h.ServeCollection))
	r.Handle("/households/", mw.RequireAuth(h.ServeItem))
}

func (r *Router) RegisterAddressRoutes(h *AddressHandler, mw *AuthMiddleware) {
	r.Handle("/addresses/regions", mw.RequireAuth(methodOnly(http.MethodGet, h.ListRegions)))
	r.Handle("/addresses/provinces", mw.RequireAuth(methodOnly(http.MethodGet, h.ListProvinces)))
	r.Handle("/addresses/cities", mw.RequireAuth(methodOnly(http.MethodGet, h.ListCities)))
	r.Handle("/addresses/barangays", mw.RequireAuth(methodOnly(http.MethodGet, h.ListBarangays)))
	r.Handle("/addresses/resolve", mw.RequireAuth(methodOnly(http.MethodGet, h.ResolveBarangay)))
}

func (r *Router) RegisterOccupationRoutes(h *OccupationHandler, mw *AuthMiddleware) {
	r.Handle("/occupations", mw.RequireAuth(methodOnly(http.MethodGet, h.Search)))
	r.Handle("/occupations/", mw.RequireAuth(methodOnly(http.MethodGet, h.ServeItem)))
}

func (r *Router) RegisterRoleRoutes(h *RolesHandler, mw *AuthMiddleware) {
	r.Handle("/roles", mw.RequireAuth(methodOnly(http.MethodGet, h.ListRoles)))
}

func (r *Router) RegisterDashboardRoutes(h *DashboardHandler, mw *AuthMiddleware) {
	r.Handle("/dashboard/summary", mw.RequireAuth(methodOnly(http.MethodGet, h.GetSummary)))
}

// RegisterOpsRoutes mounts the unauthenticated operational endpoints.
func (r *Router) RegisterOpsRoutes(h *HealthHandler, metricsEnabled bool) {
	r.Handle("/healthz", methodOnly(http.MethodGet, h.Healthz))
	if metricsEnabled {
		r.HandleHandler("/metrics", metrics.Handler())
	}
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
