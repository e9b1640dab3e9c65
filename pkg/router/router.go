// Package router wraps httprouter with JSON encoding, error mapping and the
// middleware shared by every endpoint: panic recovery, request IDs, access
// logging and rate limiting.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Handler returns a payload to encode as JSON, or an error.
type Handler func(ctx context.Context, r *http.Request) (any, error)

// Router is an http.Handler over httprouter and a middleware chain.
type Router struct {
	hr     *httprouter.Router
	mws    []Middleware
	logger *slog.Logger
}

// New builds a router with recovery, request ID and access logging.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	return &Router{
		hr:     hr,
		logger: logger,
		mws: []Middleware{
			Recoverer(logger),
			RequestID(),
			Logging(logger),
		},
	}
}

// Use appends middleware to the stack. Routes registered earlier keep the
// stack they were registered with.
func (r *Router) Use(mws ...Middleware) {
	r.mws = append(r.mws, mws...)
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodGet, path, h, mws...)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPost, path, h, mws...)
}

// Handle registers a raw http.Handler, for responses that are not JSON.
func (r *Router) Handle(method, path string, h http.Handler, mws ...Middleware) {
	r.hr.Handler(method, path, withRoute(path, Chain(h, r.stack(mws)...)))
}

func (r *Router) endpoint(method, path string, h Handler, mws ...Middleware) {
	r.hr.Handler(method, path, withRoute(path, Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(req.Context(), req)
		if err != nil {
			r.WriteError(req.Context(), w, err)
			return
		}
		writeOK(w, resp)
	}), r.stack(mws)...)))
}

type routeKey struct{}

// withRoute stores the registered pattern, e.g. /datasets/:dataset, so the
// access log groups requests by route rather than by concrete path.
func withRoute(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), routeKey{}, pattern)))
	})
}

// RouteFromContext returns the pattern the request matched, or "" outside a
// registered route.
func RouteFromContext(ctx context.Context) string {
	route, _ := ctx.Value(routeKey{}).(string)
	return route
}

func (r *Router) stack(mws []Middleware) []Middleware {
	out := make([]Middleware, 0, len(r.mws)+len(mws))
	out = append(out, r.mws...)
	return append(out, mws...)
}

// WriteError maps err to a JSON error response. Errors that are not *Error
// are logged and reported as internal.
func (r *Router) WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var herr *Error
	if !errors.As(err, &herr) {
		r.logger.ErrorContext(ctx, "unhandled error", slog.String("request_id", RequestIDFromContext(ctx)), slog.Any("error", err))
		WriteJSON(w, errorResponse{Message: "internal server error"}, http.StatusInternalServerError)
		return
	}
	if herr.Status >= http.StatusInternalServerError {
		r.logger.ErrorContext(ctx, "request failed", slog.String("request_id", RequestIDFromContext(ctx)), slog.Any("error", herr.Err))
	}
	WriteJSON(w, errorResponse{Message: herr.Message}, herr.Status)
}

func writeOK(w http.ResponseWriter, resp any) {
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}

	var meta map[string]any
	if m, ok := resp.(interface{ Meta() map[string]any }); ok {
		meta = m.Meta()
	}

	WriteJSON(w, successResponse{Data: resp, Meta: meta}, code)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

// Param reads a path parameter stored by httprouter.
func Param(ctx context.Context, key string) string {
	return httprouter.ParamsFromContext(ctx).ByName(key)
}

type errorResponse struct {
	Message string `json:"message"`
}

type successResponse struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// WriteJSON encodes data with the given status code.
func WriteJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("router: failed to encode response", slog.Any("error", err))
	}
}
