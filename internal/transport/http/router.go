package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	identityHandler "bizlink/internal/identity/handler"
	messagingHandler "bizlink/internal/messaging/handler"
	"bizlink/internal/platform/metrics"
	"bizlink/internal/platform/middleware"
	"bizlink/internal/realtime"
	"bizlink/internal/transport/http/shared"
)

// Deps holds everything the router composes. Handlers own their routes; this
// layer owns the shared middleware stack and operational endpoints.
type Deps struct {
	Identity  *identityHandler.Handler
	Messaging *messagingHandler.Handler
	Realtime  *realtime.Handler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// NewRouter assembles the public HTTP surface: the REST API, the websocket
// endpoint, and the operational endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Latency)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The websocket upgrade must bypass Timeout and ContentTypeJSON: the
	// connection is long-lived and the handshake carries no JSON body.
	r.Get("/ws", deps.Realtime.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)

		deps.Identity.Register(r)
		deps.Messaging.Register(r)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
