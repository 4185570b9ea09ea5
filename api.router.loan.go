package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupLoanRoutes injects loan related the api endpoints.
func (api *APIHandler) SetupLoanRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.POST("/v1/loans", m.public(api.CreateLoan))
	router.GET("/v1/loans", m.public(api.SearchLoans))
	router.PATCH("/v1/loans/:id", m.public(api.ReturnLoan))
	return router
}
