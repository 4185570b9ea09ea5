package main

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// MiddlewareMap contains the chain functions to use
// for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// MiddlewaresStacks returns the public and the ops middlewares stacks.
// The first middleware of a stack is the outermost one.
func (api *APIHandler) MiddlewaresStacks() (*Middlewares, *Middlewares) {
	public := &Middlewares{
		api.RequestIDMiddleware,
		api.RequestsCounterMiddleware,
		api.StatsMiddleware,
		api.CoreMiddleware,
		api.PanicRecoveryMiddleware,
		CORSMiddleware,
		api.RateLimitMiddleware,
		api.MaintenanceModeMiddleware,
	}
	ops := &Middlewares{
		api.RequestIDMiddleware,
		api.RequestsCounterMiddleware,
		api.StatsMiddleware,
		api.CoreMiddleware,
		api.PanicRecoveryMiddleware,
	}
	return public, ops
}

// CoreMiddleware setup the duration measurement for each request and logs its result.
func (api *APIHandler) CoreMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := api.clock.Now()
		logger := api.GetLoggerFromContext(r.Context())

		logger.Info(
			"request",
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
		)

		next(w, r, ps)

		fields := []zap.Field{
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.Duration("request.duration", api.clock.Now().Sub(start)),
		}
		if cw, ok := w.(*CustomResponseWriter); ok {
			fields = append(fields, zap.Int("response.status", cw.Status()), zap.Int("response.bytes", cw.Bytes()))
		}
		logger.Info("response", fields...)
	}
}

// RequestsCounterMiddleware increments the number of received requests statistics and add this
// new value to the request context to be used during logging as `request.num` field.
func (api *APIHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		num := atomic.AddUint64(&api.stats.called, 1)
		ctx := context.WithValue(r.Context(), RequestNumberContextKey, num)
		ctx = context.WithValue(ctx, LoggerContextKey, api.GetLoggerFromContext(ctx).With(zap.Uint64("request.num", num)))
		next(w, r.WithContext(ctx), ps)
	}
}

// RequestIDMiddleware reuses a valid incoming request id or generates a new one. The id is
// added to the request context, to the response headers and to the request scoped logger.
func (api *APIHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := r.Header.Get(RequestIDHeader)
		if !api.idsHandler.IsValid(RequestIDPrefix, requestID) {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		ctx = context.WithValue(ctx, LoggerContextKey, api.logger.With(zap.String("request.id", requestID)))
		next(w, r.WithContext(ctx), ps)
	}
}

// StatsMiddleware wraps the response writer to record the status code
// of each response into the statistics served on the ops endpoint.
func (api *APIHandler) StatsMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cw := NewCustomResponseWriter(w, GetConnFromContext(r.Context()))
		next(cw, r, ps)
		code := cw.Status()
		if err := r.Context().Err(); err != nil && !cw.wrote {
			code = StatusClientClosedRequest
		}
		api.stats.mu.Lock()
		api.stats.status[code]++
		api.stats.mu.Unlock()
	}
}

// CORSMiddleware intercepts each incoming HTTP calls then apply cors headers on it.
func CORSMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers, Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-ID, Authorization, User-Agent, Accept-Language, Referer, Cache-Control")
		next(w, r, ps)
	}
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It sends a failure response to the client with 500.
func (api *APIHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		defer func() {
			if err := recover(); err != nil {
				logger := api.GetLoggerFromContext(r.Context())
				logger.Error("panic occurred", zap.Any("error", err), zap.Stack("stack"))
				requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
				errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to process the request.", EmptyData)
				if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
					logger.Error("failed to send error response", zap.Error(err))
				}
			}
		}()
		next(w, r, ps)
	}
}

// MaintenanceModeMiddleware responds with 503 and the maintenance
// message while the maintenance mode is enabled.
func (api *APIHandler) MaintenanceModeMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if api.mode.enabled.Load() {
			api.Maintenance(w, r, httprouter.Params{{Key: "status", Value: "show"}})
			return
		}
		next(w, r, ps)
	}
}

// RateLimitMiddleware rejects with 429 the requests of a client
// which exceeded its allowed rate. It is a no-op when disabled.
func (api *APIHandler) RateLimitMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if api.limiter == nil || api.limiter.Allow(GetRequestSourceIP(r)) {
			next(w, r, ps)
			return
		}
		w.Header().Set("Retry-After", "1")
		api.sendError(w, r, http.StatusTooManyRequests, "rate limit exceeded", EmptyData, nil)
	}
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// It does by starting from the last middleware from the list.
func (m *Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if len(*m) == 0 {
		return h
	}
	lg := len(*m)
	handle := (*m)[lg-1](h)

	for i := lg - 2; i >= 0; i-- {
		handle = (*m)[i](handle)
	}

	return handle
}

// client is the rate limiter of a single source ip.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientsLimiter keeps one token bucket per source ip. Clients idle for longer
// than the expiry are dropped during the next sweep made on a call to Allow.
type ClientsLimiter struct {
	mu        sync.Mutex
	clock     Clocker
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	expiry    time.Duration
	lastSweep time.Time
}

// NewClientsLimiter returns nil when rate limiting is disabled.
func NewClientsLimiter(config RateLimitConfig, clock Clocker) *ClientsLimiter {
	if !config.Enabled {
		return nil
	}
	return &ClientsLimiter{
		clock:     clock,
		clients:   make(map[string]*client),
		limit:     rate.Limit(config.RPS),
		burst:     config.Burst,
		expiry:    config.Expiry,
		lastSweep: clock.Now(),
	}
}

// Allow reports whether the client with the given ip may proceed now.
func (cl *ClientsLimiter) Allow(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.clock.Now()
	if now.Sub(cl.lastSweep) > cl.expiry {
		for key, c := range cl.clients {
			if now.Sub(c.lastSeen) > cl.expiry {
				delete(cl.clients, key)
			}
		}
		cl.lastSweep = now
	}

	c, found := cl.clients[ip]
	if !found {
		c = &client{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (cl *ClientsLimiter) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}
