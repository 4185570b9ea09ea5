package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

type (
	ContextKey        string
	missingFieldError string
	invalidFieldError string
)

const (
	RequestIDPrefix         string     = "r"
	RequestIDHeader         string     = "X-Request-ID"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
	ConnContextKey          ContextKey = "http-conn"
)

// storeCodec encodes records kept by the bolt store and the redis cache.
var storeCodec = jsoniter.ConfigCompatibleWithStandardLibrary

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

func (i invalidFieldError) Error() string {
	return string(i) + " is not valid"
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		return val.(string)
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val := ctx.Value(RequestNumberContextKey); val != nil {
		return val.(uint64)
	}
	return 0
}

// DecodeRequestBody reads the json content of a request into v.
func DecodeRequestBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("request body is empty")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// ValidateBookRequestBody checks that all fields of a book payload are set.
func ValidateBookRequestBody(book *BookDTO) error {
	if strings.TrimSpace(book.Title) == "" {
		return missingFieldError("title")
	}

	if strings.TrimSpace(book.Author) == "" {
		return missingFieldError("author")
	}

	if strings.TrimSpace(book.Isbn) == "" {
		return missingFieldError("isbn")
	}

	return nil
}

// ValidateLoanRequestBody checks the isbn and the customer of a loan payload.
func ValidateLoanRequestBody(loan *LoanRequest) error {
	if strings.TrimSpace(loan.Isbn) == "" {
		return missingFieldError("isbn")
	}

	if strings.TrimSpace(loan.Customer) == "" {
		return missingFieldError("customer")
	}

	return nil
}

// ValidateLoanReturnedRequestBody ensures the returned flag is present.
func ValidateLoanReturnedRequestBody(req *LoanReturnedRequest) error {
	if req.Returned == nil {
		return missingFieldError("returned")
	}
	return nil
}

// ParseID converts a path parameter into a strictly positive identifier.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidFieldError("id")
	}
	return id, nil
}

// ParsePageRequest reads the zero-based `page` and the `size` query
// parameters. Missing values fall back to the first page of default
// size and the size is capped to the configured maximum.
func ParsePageRequest(q url.Values, config PaginationConfig) (PageRequest, error) {
	page := PageRequest{Number: 0, Size: config.DefaultSize}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, invalidFieldError("page")
		}
		page.Number = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return page, invalidFieldError("size")
		}
		page.Size = n
	}
	if config.MaxSize > 0 && page.Size > config.MaxSize {
		page.Size = config.MaxSize
	}
	return page, nil
}

// HasSearchParams tells if any book search or paging parameter is set.
func HasSearchParams(q url.Values) bool {
	for _, key := range []string{"title", "author", "isbn", "page", "size"} {
		if _, ok := q[key]; ok {
			return true
		}
	}
	return false
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// SaveConnInContext is the hook used by the server under ConnContext.
// It sets the underlying connection into the request context for later
// use by ReadDeadline or WriteDeadline method on *CustomResponseWriter.
func SaveConnInContext(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, ConnContextKey, c)
}

// GetConnFromContext returns the connection saved into the context
// or nil when the request did not come through the server.
func GetConnFromContext(ctx context.Context) net.Conn {
	if c, ok := ctx.Value(ConnContextKey).(net.Conn); ok {
		return c
	}
	return nil
}
