package server

import "github.com/webcraft/account-gateway/internal/metrics"

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("POST "+RouteAuthSignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.SessionMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.APIMiddleware()...))

	// GITHUB OAUTH
	s.RegisterRouteHandler("GET "+RouteAuthGitHub, ChainMiddleware(s.GitHubLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthGitHubCallback, ChainMiddleware(s.GitHubCallbackHandler(), s.APIMiddleware()...))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.SessionMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPISessionRefresh, ChainMiddleware(s.SessionRefreshHandler(), s.SessionMiddleware()...))

	// ADMIN (require the X-Admin-Key header)
	s.RegisterRouteHandler("POST "+RouteAPICreateUser, ChainMiddleware(s.CreateUserHandler(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIDeleteUser, ChainMiddleware(s.DeleteUserHandler(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIToggleUser, ChainMiddleware(s.ToggleUserHandler(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIVerifyUserEmail, ChainMiddleware(s.VerifyUserEmailHandler(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIUsers, ChainMiddleware(s.ListUsersHandler(), s.AdminMiddleware()...))

	// OBSERVABILITY
	if s.deps.Registry != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler(s.deps.Registry))
	}
}
