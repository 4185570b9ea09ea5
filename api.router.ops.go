package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// profiles served by the runtime/pprof lookup handler.
var profiles = []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"}

// SetupOpsRoutes injects internal operations related endpoints. The
// profiler endpoints are only added when explicitly enabled.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/ops/configs", m.ops(api.GetConfigs))
	router.GET("/ops/stats", m.ops(api.GetStatistics))
	router.GET("/ops/maintenance", m.ops(api.Maintenance))
	router.GET("/ops/debug/vars", m.ops(GetMemStats))
	router.GET("/ops/debug/gc", m.ops(api.RunGC))
	router.GET("/ops/debug/fos", m.ops(api.FreeOSMemory))

	if !api.config.ProfilerEndpointsEnable {
		return router
	}

	router.GET("/ops/debug/pprof/", m.ops(api.OpsHandlerWrapper(http.HandlerFunc(pprof.Index))))
	router.GET("/ops/debug/pprof/profile", m.ops(api.GetCPUProfile))
	router.GET("/ops/debug/pprof/trace", m.ops(api.GetTraceProfile))
	router.GET("/ops/debug/pprof/symbol", m.ops(api.GetSymbol))
	router.GET("/ops/debug/pprof/cmdline", m.ops(api.GetCmdLine))
	for _, name := range profiles {
		router.GET("/ops/debug/pprof/"+name, m.ops(api.OpsHandlerWrapper(pprof.Handler(name))))
	}
	return router
}
