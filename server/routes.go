package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// SIGN-IN FLOW
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Session protected
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.APIMeHandler(), s.APIMiddleware(s.RequireSessionAPI())...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIMe, ChainMiddleware(s.APIMeHandler(), s.APIMiddleware()...))

	s.initOpsRoutes()
}

func (s *Server) initProxyRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.ProxyIndexHandler(), s.HTMLMiddleWare(s.RequirePrincipal())...))
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.ProxyAPIMeHandler(), s.APIMiddleware(s.RequirePrincipal())...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIMe, ChainMiddleware(s.ProxyAPIMeHandler(), s.APIMiddleware()...))

	s.initOpsRoutes()
}

func (s *Server) initOpsRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.OpsMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(s.metrics.Handler().ServeHTTP, s.OpsMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(FileServerHandler().ServeHTTP, append(s.OpsMiddleware(), s.StaticCacheMiddleware, s.CompressionMiddleware)...))

	// Everything else
	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.HTMLMiddleWare()...))
}
