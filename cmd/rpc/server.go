package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/p2pclaw/hive/controller"
	"github.com/p2pclaw/hive/lib"
	"github.com/rs/cors"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"
)

const (
	colon = ":"

	SoftwareVersion = "0.1.0"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"
)

// Server represents a hive RPC server with configuration options.
type Server struct {
	// hive node controller
	controller *controller.Controller

	// hive node configuration
	config lib.Config

	// limiter is the global request budget shared by every caller
	limiter *rate.Limiter

	server *http.Server
	logger lib.LoggerI
}

// NewServer constructs and returns a new hive RPC server
func NewServer(controller *controller.Controller, config lib.Config, logger lib.LoggerI) *Server {
	limit := rate.Limit(config.RequestsPerSecond)
	if config.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Server{
		controller: controller,
		config:     config,
		limiter:    rate.NewLimiter(limit, max(config.RequestBurst, 1)),
		logger:     logger,
	}
}

// Start initializes the hive RPC server
func (s *Server) Start() {
	listener, err := net.Listen("tcp", colon+s.config.RPCPort)
	if err != nil {
		s.logger.Fatalf("Unable to listen on port %s: %s", s.config.RPCPort, err.Error())
	}
	// bound the simultaneous connections
	if s.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.config.MaxConnections)
	}
	s.server = &http.Server{Handler: s.Handler()}
	s.logger.Infof("Starting RPC server at 0.0.0.0:%s", s.config.RPCPort)
	go func() {
		if e := s.server.Serve(listener); e != nil && !errors.Is(e, http.ErrServerClosed) {
			s.logger.Errorf("RPC server failed with err: %s", e.Error())
		}
	}()
}

// Stop gracefully shuts down the RPC server
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.TimeoutS)*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error(err.Error())
	}
}

// Handler returns the full handler chain: cors, then the request timeout, then the router
func (s *Server) Handler() http.Handler {
	// Create CORS policy
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS", "POST"},
	})

	// Create a default timeout for HTTP requests
	timeout := time.Duration(s.config.TimeoutS) * time.Second

	return cor.Handler(http.TimeoutHandler(createRouter(s), timeout, lib.ErrServerTimeout().Error()))
}

// limit wraps a handle with the global rate limiter
func (s *Server) limit(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if !s.limiter.Allow() {
			write(w, ErrRateLimited(), http.StatusTooManyRequests)
			return
		}
		h(w, r, p)
	}
}

// unmarshal reads a size limited request body into ptr
func (s *Server) unmarshal(w http.ResponseWriter, r *http.Request, ptr interface{}) bool {
	defer func() { _ = r.Body.Close() }()
	bz, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes))
	if err != nil {
		write(w, ErrBadRequest(err), http.StatusRequestEntityTooLarge)
		return false
	}
	if err = json.Unmarshal(bz, ptr); err != nil {
		write(w, ErrBadRequest(err), http.StatusBadRequest)
		return false
	}
	return true
}

// write marshaled payload to w
func write(w http.ResponseWriter, payload interface{}, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)

	// Marshal and indent the payload
	bz, _ := json.MarshalIndent(payload, "", "  ")
	_, _ = w.Write(bz)
}

// writeErr writes an error with the status code of its reason
func writeErr(w http.ResponseWriter, err lib.ErrorI) {
	write(w, err, StatusCode(err))
}

// StatusCode maps an error to its HTTP status
func StatusCode(err lib.ErrorI) int {
	if err.Module() == lib.RPCModule && err.Code() == lib.CodeRateLimited {
		return http.StatusTooManyRequests
	}
	switch err.Reason() {
	case lib.ReasonValidationFailed:
		return http.StatusBadRequest
	case lib.ReasonNotFound:
		return http.StatusNotFound
	case lib.ReasonDuplicate, lib.ReasonAlreadyValidated:
		return http.StatusConflict
	case lib.ReasonSelfValidation, lib.ReasonInsufficientRank, lib.ReasonBanned:
		return http.StatusForbidden
	case lib.ReasonModerationRejected:
		return http.StatusUnprocessableEntity
	case lib.ReasonStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
