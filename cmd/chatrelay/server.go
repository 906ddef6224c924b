package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chatrelay/internal/auth"
	"chatrelay/internal/errors"
	"chatrelay/internal/httputil"
	"chatrelay/internal/middleware"
	"chatrelay/internal/models"
	"chatrelay/internal/service"
	"chatrelay/internal/tracing"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	cfg      *models.Config
	socket   *service.SocketService
	delivery *service.DeliveryService
	auth     auth.TokenValidator
	server   *http.Server
}

func NewServer(cfg *models.Config, socket *service.SocketService, delivery *service.DeliveryService, validator auth.TokenValidator, logger *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		cfg:      cfg,
		socket:   socket,
		delivery: delivery,
		auth:     validator,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Realtime channel; no observability middleware here since the
	// connection is hijacked for its whole lifetime.
	s.router.HandleFunc("/ws", s.handleWebsocket()).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.Handle("/metrics",
		middleware.ObservabilityMiddleware(s.logger)(s.handleMetrics())).Methods(http.MethodGet)

	// Polling fallback for clients without a live connection
	api := s.router.PathPrefix("/api/v1/messages").Subrouter()
	api.Use(middleware.ObservabilityMiddleware(s.logger))
	api.HandleFunc("/offline", s.handleFetchOffline()).Methods(http.MethodPost)
	api.HandleFunc("/delivered", s.handleMarkAllDelivered()).Methods(http.MethodPost)
	api.HandleFunc("/delete", s.handleDeleteMessage()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleWebsocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Clients are native apps, not browsers; origin checks do not
			// apply.
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.logger.WithError(err).Info("Websocket accept failed")
			return
		}

		s.socket.HandleConnection(r.Context(), conn, httputil.GetClientIP(r))
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

type tokenRequest struct {
	Token string `json:"token"`
}

type deleteRequest struct {
	Token     string `json:"token"`
	MessageID int64  `json:"messageId"`
}

func (s *Server) handleFetchOffline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.NewValidationError("body", "invalid JSON"))
			return
		}

		userID, err := s.auth.ValidateToken(r.Context(), req.Token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		msgs, err := s.delivery.FetchAndPromote(r.Context(), userID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if msgs == nil {
			msgs = []models.OfflineMessage{}
		}

		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"messages": msgs,
		})
	}
}

func (s *Server) handleMarkAllDelivered() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.NewValidationError("body", "invalid JSON"))
			return
		}

		userID, err := s.auth.ValidateToken(r.Context(), req.Token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		promoted, err := s.delivery.MarkAllDelivered(r.Context(), userID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"promoted": promoted,
		})
	}
}

func (s *Server) handleDeleteMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.NewValidationError("body", "invalid JSON"))
			return
		}

		userID, err := s.auth.ValidateToken(r.Context(), req.Token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		deleted, err := s.delivery.Delete(r.Context(), userID, req.MessageID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !deleted {
			s.writeError(w, r, errors.NewNotFoundError("message", req.MessageID))
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := tracing.GetRequestID(r.Context())
	status := errors.HTTPStatusCode(err)
	if status >= 500 {
		tracing.RecordError(r.Context(), err)
		errors.LogError(s.logger, err, "Request failed")
	}
	s.writeJSON(w, status, errors.ToHTTPResponse(err, requestID))
}
