package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "chatsync/internal/errors"
	"chatsync/internal/middleware"
	"chatsync/internal/models"
	"chatsync/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server is the presentation-facing HTTP boundary: it serves the current
// conversation snapshot and turns submit requests into pipeline sends.
type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	store    *service.ConversationStore
	pipeline *service.SendPipeline
	config   *models.Config
	server   *http.Server
}

func NewServer(cfg *models.Config, store *service.ConversationStore, pipeline *service.SendPipeline, logger *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		store:    store,
		pipeline: pipeline,
		config:   cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1/conversation").Subrouter()
	api.HandleFunc("/messages", s.handleMessages()).Methods(http.MethodGet)
	api.HandleFunc("/send", s.handleSend()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.config.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

type messagesResponse struct {
	Messages     []models.Message `json:"messages"`
	Version      uint64           `json:"version"`
	SendInFlight bool             `json:"sendInFlight"`
}

func (s *Server) handleMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := messagesResponse{
			Messages:     s.store.Messages(),
			Version:      s.store.Version(),
			SendInFlight: s.pipeline.InFlight(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.logger.WithError(err).Error("Failed to encode messages response")
		}
	}
}

type sendRequest struct {
	Messages []models.DraftMessage `json:"messages"`
}

func (s *Server) handleSend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if len(req.Messages) == 0 {
			http.Error(w, "no messages submitted", http.StatusBadRequest)
			return
		}

		if err := s.pipeline.Send(r.Context(), req.Messages); err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeSendInFlight) {
				http.Error(w, "a send is already in flight", http.StatusConflict)
				return
			}
			s.logger.WithError(err).Error("Send pipeline failed")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		// Delivery outcomes are not reported to the caller; the feed
		// subscription settles the visible list either way.
		w.WriteHeader(http.StatusAccepted)
	}
}
