package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"practice-payments/internal/config"
	"practice-payments/internal/domain/ports/adapter"
	"practice-payments/internal/domain/ports/repository"
	"practice-payments/internal/usecase"
)

// Server exposes the two reconciliation entry points (browser redirect and
// vendor webhook) for every registered vendor, the checkout endpoints that
// start a payment, and a small admin surface.
type Server struct {
	checkoutUC   usecase.CheckoutUseCase
	settlementUC usecase.SettlementUseCase
	attempts     repository.AttemptRepository
	invoices     repository.InvoiceRepository
	settlements  repository.SettlementRepository
	settings     repository.GatewaySettingsRepository
	registry     adapter.Registry
	tokens       *PayTokenManager

	baseURL         string
	adminAPIKey     string
	callbackTimeout time.Duration

	srv *http.Server
	log *zerolog.Logger
}

func NewServer(
	cfg *config.Config,
	checkoutUC usecase.CheckoutUseCase,
	settlementUC usecase.SettlementUseCase,
	attempts repository.AttemptRepository,
	invoices repository.InvoiceRepository,
	settlements repository.SettlementRepository,
	settings repository.GatewaySettingsRepository,
	registry adapter.Registry,
	tokens *PayTokenManager,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		checkoutUC:      checkoutUC,
		settlementUC:    settlementUC,
		attempts:        attempts,
		invoices:        invoices,
		settlements:     settlements,
		settings:        settings,
		registry:        registry,
		tokens:          tokens,
		baseURL:         strings.TrimRight(cfg.Server.BaseURL, "/"),
		adminAPIKey:     cfg.Server.AdminAPIKey,
		callbackTimeout: cfg.Payment.CallbackTimeout,
		log:             logger,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/payments/result", s.handleResultPage)

	r.Route("/payments/{vendor}", func(r chi.Router) {
		r.Post("/checkout", s.handleCheckout)
		r.Get("/success", s.handleSuccess)
		r.Post("/success", s.handleSuccess)
		r.Post("/callback", s.handleWebhook)

		// Guest invoice flows; the pay token replaces any session.
		r.Route("/invoice", func(r chi.Router) {
			r.Post("/checkout", s.handleInvoiceCheckout)
			r.Get("/success", s.handleInvoiceSuccess)
			r.Post("/success", s.handleInvoiceSuccess)
			r.Post("/callback", s.handleInvoiceWebhook)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/attempts/{reference}", s.handleAttemptLookup)
		r.Get("/settlements/flagged", s.handleFlaggedSettlements)
		r.Post("/invoices/{invoiceID}/pay-link", s.handlePayLink)
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// authMiddleware guards the admin API with a static bearer key.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminAPIKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		parts := strings.Split(r.Header.Get("Authorization"), " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if parts[1] != s.adminAPIKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
