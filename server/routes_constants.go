package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Signup, Login & Logout
	RouteAuthSignup = "/auth/signup"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Auth Routes - GitHub OAuth
	RouteAuthGitHub         = "/auth/github"
	RouteAuthGitHubCallback = "/auth/github/callback"

	// Auth Routes - Password Management
	RouteAuthForgotPassword = "/auth/forgot-password"

	// Session Routes
	RouteAPISession        = "/api/session"
	RouteAPISessionRefresh = "/api/session/refresh"

	// Admin Routes
	RouteAPICreateUser      = "/api/createUser"
	RouteAPIDeleteUser      = "/api/deleteUser"
	RouteAPIResetPassword   = "/api/reset-password"
	RouteAPIToggleUser      = "/api/toggle-user"
	RouteAPIVerifyUserEmail = "/api/verify-user-email"
	RouteAPIUsers           = "/api/users"

	// Observability
	RouteMetrics = "/metrics"
)
