package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/application"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/web"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/worker"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/usecase"
)

// portSearchSpan is how many consecutive ports to probe when the configured
// one is taken.
const portSearchSpan = 10

const handlerTimeout = 30 * time.Second

// HealthProbe reports liveness of a dependency for /healthz.
type HealthProbe func(ctx context.Context) bool

// Server is the webhook ingress: Telegram updates, payment IPNs, health and
// metrics. Both webhook routes are authenticated before any body is trusted.
type Server struct {
	facade    *application.BotFacade
	payments  usecase.PaymentUseCase
	pool      *worker.Pool
	tgAuth    *SecretTokenVerifier
	ipnAuth   *IPNVerifier
	admin     *web.Server
	dbProbe   HealthProbe
	log       *zerolog.Logger
	server    *http.Server
	boundPort int
	started   chan struct{}
}

func NewServer(
	facade *application.BotFacade,
	payments usecase.PaymentUseCase,
	pool *worker.Pool,
	tgAuth *SecretTokenVerifier,
	ipnAuth *IPNVerifier,
	admin *web.Server,
	dbProbe HealthProbe,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		facade:   facade,
		payments: payments,
		pool:     pool,
		tgAuth:   tgAuth,
		ipnAuth:  ipnAuth,
		admin:    admin,
		dbProbe:  dbProbe,
		log:      logger,
		started:  make(chan struct{}),
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(guards(s.log, handlerTimeout)...)

	r.Post("/webhook/telegram", s.handleTelegram)
	r.Post("/webhook/payments", s.handlePayments)

	r.Get("/", s.handleRoot)
	r.Head("/", s.handleRoot)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.admin != nil {
		s.admin.Register(r)
	}

	return r
}

// Start binds the first free port in [port, port+portSearchSpan) and serves
// until Shutdown. It returns http.ErrServerClosed on a clean stop.
func (s *Server) Start(port int) error {
	var ln net.Listener
	var err error
	for p := port; p < port+portSearchSpan; p++ {
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", p))
		if err == nil {
			s.boundPort = p
			break
		}
		s.log.Warn().Int("port", p).Err(err).Msg("port unavailable, trying next")
	}
	if ln == nil {
		return fmt.Errorf("no free port in [%d,%d): %w", port, port+portSearchSpan, err)
	}

	s.server = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.boundPort).Msg("webhook server listening")
	close(s.started)
	return s.server.Serve(ln)
}

// Port returns the bound port; valid once Start has logged it.
func (s *Server) Port() int { return s.boundPort }

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte("ok"))
	}
}

// running reports whether Start has bound a port. Requests reaching the
// handler through the real listener always observe true; only direct router
// invocations (tests, embedding) can see false.
func (s *Server) running() bool {
	select {
	case <-s.started:
		return true
	default:
		return false
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	dbOK := s.dbProbe == nil || s.dbProbe(r.Context())
	st := struct {
		DBOK    bool `json:"db_ok"`
		Started bool `json:"started"`
	}{DBOK: dbOK, Started: s.running()}

	w.Header().Set("Content-Type", "application/json")
	if !dbOK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) submit(ctx context.Context, task worker.Task) {
	if err := s.pool.Submit(task); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			logging.With(ctx, s.log).Warn().Msg("worker queue saturated, update dropped")
			return
		}
		logging.With(ctx, s.log).Error().Err(err).Msg("submit failed")
	}
}
