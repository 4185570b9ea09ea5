package main

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var EmptyData = struct{}{}

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger      *zap.Logger
	config      *Config
	stats       *Statistics
	mode        *Maintenance
	clock       Clocker
	idsHandler  UIDHandler
	limiter     *ClientsLimiter
	bookService BookServiceProvider
	loanService LoanServiceProvider
}

// NewAPIHandler provides a new instance of APIHandler.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	idsHandler UIDHandler,
	bs BookServiceProvider,
	ls LoanServiceProvider,
) *APIHandler {
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	if config == nil {
		config = &Config{}
	}
	return &APIHandler{
		logger:      logger,
		config:      config,
		stats:       stats,
		mode:        &Maintenance{},
		clock:       clock,
		idsHandler:  idsHandler,
		limiter:     NewClientsLimiter(config.RateLimit, clock),
		bookService: bs,
		loanService: ls,
	}
}

// sendError logs the failure and writes the error envelope.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}, err error) {
	logger := api.GetLoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Int("response.status", status), zap.Error(err))
	} else {
		logger.Info(message, zap.Int("response.status", status), zap.Error(err))
	}
	errResp := NewAPIError(GetValueFromContext(r.Context(), RequestIDContextKey), status, message, data)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
}

// sendServiceError maps a service error to its status code.
func (api *APIHandler) sendServiceError(w http.ResponseWriter, r *http.Request, err error, data interface{}) {
	status, message := ErrorStatus(err)
	if status == http.StatusBadRequest {
		data = err.Error()
	}
	api.sendError(w, r, status, message, data, err)
}

// send writes the success envelope.
func (api *APIHandler) send(w http.ResponseWriter, r *http.Request, status int, message string, total *int64, data interface{}) {
	resp := GenericResponse(GetValueFromContext(r.Context(), RequestIDContextKey), status, message, total, data)
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}
