package main

import (
	_ "github.com/jeamon/demo-library/docs" // swagger docs
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// SetupRoutes injects status, book, loan and ops related endpoints if required.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = api.NotFound()
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	api.SetupBookRoutes(router, m)
	api.SetupLoanRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	router.GET("/swagger/*any", m.public(api.OpsHandlerWrapper(httpswagger.Handler(httpswagger.URL("/swagger/doc.json")))))
	return router
}
