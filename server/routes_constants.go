package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Sign-in flow
	RouteLogin     = "/login"
	RouteCallback  = "/getAToken"
	RouteDashboard = "/dashboard"
	RouteLogout    = "/logout"

	// API Routes
	RouteAPIMe = "/api/me"

	// Operational
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
	RouteStatic  = "/static/"
)
