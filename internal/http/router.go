package httpserver

import "net/http"

// Routes groups handlers. Nil entries are simply not registered, which lets
// optional surfaces (checkout, webhooks, watch) stay off when their
// backing client is not configured.
type Routes struct {
	CreatePending  http.Handler
	ConfirmSession http.Handler
	EndSession     http.Handler
	StartSession   http.Handler
	LockSpot       http.Handler
	SessionsMe     http.Handler
	SpotStatus     http.Handler
	Checkout       http.Handler
	StripeWebhook  http.Handler
	Watch          http.Handler
	Health         http.Handler
	Metrics        http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.CreatePending != nil {
		mux.Handle("/api/parking/create-pending", method(http.MethodPost, routes.CreatePending))
	}
	if routes.ConfirmSession != nil {
		mux.Handle("/api/parking/confirm-session", method(http.MethodPost, routes.ConfirmSession))
	}
	if routes.EndSession != nil {
		mux.Handle("/end-metered-session", method(http.MethodPost, routes.EndSession))
	}
	if routes.StartSession != nil {
		mux.Handle("/start-metered-session", method(http.MethodPost, routes.StartSession))
	}
	if routes.LockSpot != nil {
		mux.Handle("/api/lock-metered-spot", method(http.MethodPost, routes.LockSpot))
	}
	if routes.SessionsMe != nil {
		mux.Handle("/api/sessions/me", method(http.MethodGet, routes.SessionsMe))
	}
	if routes.SpotStatus != nil {
		mux.Handle("/api/spot/", method(http.MethodGet, routes.SpotStatus))
	}
	if routes.Checkout != nil {
		mux.Handle("/create-checkout-session", method(http.MethodPost, routes.Checkout))
	}
	if routes.StripeWebhook != nil {
		mux.Handle("/webhooks/stripe", method(http.MethodPost, routes.StripeWebhook))
	}
	if routes.Watch != nil {
		mux.Handle("/ws/watch", routes.Watch)
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", method(http.MethodGet, routes.Metrics))
	}
	return mux
}

func method(expected string, handler http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	}
}
