package routes

import (
	"net/http"

	"github.com/skyreport/skyreport/internal/app"
	"github.com/skyreport/skyreport/internal/handler"
	"github.com/skyreport/skyreport/internal/metrics"
	"github.com/skyreport/skyreport/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	update := handler.NewUpdateHandler(app.UpdateService)
	weather := handler.NewWeatherHandler(app.WeatherService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Account lifecycle (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /register", rateLimiter(auth.HandleRegister))
	mux.HandleFunc("GET /verify", auth.HandleVerify)
	mux.HandleFunc("POST /login", rateLimiter(auth.HandleLogin))
	mux.HandleFunc("POST /logout", auth.HandleLogout)
	mux.HandleFunc("POST /forgot-password", rateLimiter(auth.HandleForgotPassword))
	mux.HandleFunc("POST /reset-password", rateLimiter(auth.HandleResetPassword))
	mux.HandleFunc("POST /resend-verification", rateLimiter(auth.HandleResendVerification))
	mux.HandleFunc("POST /resend-reset", rateLimiter(auth.HandleResendReset))

	// Weather lookup proxy
	mux.HandleFunc("GET /weather", weather.HandleGetWeather)

	// Operational endpoints
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	mux.HandleFunc("GET /profile", middleware.RequireAuth(auth.HandleProfile))
	mux.HandleFunc("PUT /profile", middleware.RequireAuth(auth.HandleUpdateProfile))

	mux.HandleFunc("POST /weather-updates", middleware.RequireAuth(update.HandleCreateGeneral))
	mux.HandleFunc("POST /risk-updates", middleware.RequireAuth(update.HandleCreateRisk))
	mux.HandleFunc("GET /all-updates", middleware.RequireAuth(update.HandleListByAuthor))
	mux.HandleFunc("GET /nearby-updates", middleware.RequireAuth(update.HandleListNearby))
	mux.HandleFunc("GET /country-updates", middleware.RequireAuth(update.HandleListByCountry))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.CORS(app.Cfg.FrontendOrigin),
		middleware.RequestLogging,
		middleware.Metrics,
		middleware.AuthMiddleware(app.AuthService),
	)

	return handler
}
