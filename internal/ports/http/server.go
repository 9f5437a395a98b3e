package http

import (
	"chainsign/internal/app"
	"chainsign/internal/metrics"
	"chainsign/internal/model"
	"chainsign/internal/ports/http/middleware/auth"
	"chainsign/internal/ports/http/middleware/cors"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const sessionHeader = "X-Session-ID"

// Service is the application the handlers call into.
type Service interface {
	ConnectSession(ctx context.Context, privateKeyHex string) (app.SessionInfo, error)
	DisconnectSession(sessionID string) error
	CreateDocument(ctx context.Context, sessionID string, file []byte, firstApprover string) (app.DocumentView, error)
	ApproveDocument(ctx context.Context, sessionID, docID, next string) (app.DocumentView, error)
	GetDocument(ctx context.Context, docID string) (app.DocumentView, error)
	StoreDocumentHash(ctx context.Context, sessionID, docID string) (string, error)
	AddEmployee(ctx context.Context, sessionID string, employee model.Employee) error
	SearchEmployees(ctx context.Context, name string) ([]model.Employee, error)
}

type Server struct {
	app        Service
	httpServer *http.Server
	addr       string
	timeout    time.Duration
	auth       *auth.TokenValidator
	origins    []string
	logger     *zap.Logger
}

type Option func(*Server)

// WithAuth puts the api routes behind the token validator.
func WithAuth(validator auth.TokenValidator) Option {
	return func(s *Server) { s.auth = &validator }
}

// WithAllowedOrigins restricts the cors policy, any origin is allowed otherwise.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.timeout = timeout }
}

func NewServer(logger *zap.Logger, a Service, address string, options ...Option) *Server {
	s := &Server{
		app:     a,
		addr:    address,
		timeout: 10 * time.Second,
		logger:  logger,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (ser *Server) registerHandlers(router *mux.Router) {
	router.HandleFunc("/health", healthcheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if ser.auth != nil {
		api.Use(ser.auth.Validate)
	}

	api.HandleFunc("/sessions", ser.connectSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sessionID}", ser.disconnectSession).Methods(http.MethodDelete)

	api.HandleFunc("/documents", ser.createDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/{docID}", ser.getDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{docID}/approve", ser.approveDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/{docID}/hash", ser.storeDocumentHash).Methods(http.MethodPost)

	api.HandleFunc("/employees", ser.searchEmployees).Methods(http.MethodGet)
	api.HandleFunc("/employees", ser.addEmployee).Methods(http.MethodPost)
}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("all good here"))
}

// Handler is the complete http handler, cors policy included.
func (ser *Server) Handler() http.Handler {
	router := mux.NewRouter()
	ser.registerHandlers(router)
	return cors.AddCorsPolicy(router, ser.origins)
}

func (ser *Server) Run() error {
	ser.httpServer = &http.Server{
		Handler: ser.Handler(),
		Addr:    ser.addr,
	}

	ser.logger.Info("http server listening", zap.String("addr", ser.addr))
	if err := ser.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (ser *Server) Shutdown(ctx context.Context) error {
	if ser.httpServer == nil {
		return nil
	}
	return ser.httpServer.Shutdown(ctx)
}

func (ser *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), ser.timeout)
}
