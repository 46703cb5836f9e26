package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Public
	RouteIndex  = "/"
	RouteHealth = "/health"

	// Auth Routes
	RouteAuthLogin  = "/auth/login"
	RouteAuthSignup = "/auth/signup"
	RouteAuthLogout = "/auth/logout"

	// API Routes (bearer token required)
	RouteAPIMe = "/api/me"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	serviceName     = "newsfeed-api"
)
