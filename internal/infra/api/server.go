package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-notify-relay/internal/config"
	"telegram-notify-relay/internal/domain"
	"telegram-notify-relay/internal/domain/model"
	"telegram-notify-relay/internal/domain/ports/adapter"
	"telegram-notify-relay/internal/domain/ports/repository"
	"telegram-notify-relay/internal/usecase"
)

const apiKeyHeader = "X-API-KEY"

// Server wires the notify endpoint and the admin CRUD surface to use cases.
type Server struct {
	dispatcher usecase.NotifyDispatcher
	services   usecase.ServiceUseCase
	chats      usecase.ChatUseCase
	events     usecase.EventUseCase
	client     adapter.TelegramClient
	auth       *AdminAuth
	cfg        *config.Config
	log        *zerolog.Logger
}

func NewServer(
	dispatcher usecase.NotifyDispatcher,
	services usecase.ServiceUseCase,
	chats usecase.ChatUseCase,
	events usecase.EventUseCase,
	client adapter.TelegramClient,
	auth *AdminAuth,
	cfg *config.Config,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		dispatcher: dispatcher,
		services:   services,
		chats:      chats,
		events:     events,
		client:     client,
		auth:       auth,
		cfg:        cfg,
		log:        logger,
	}
}

// Router assembles the chi router with the middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(s.cfg.HTTP.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/api/notify", s.handleNotify)
	r.Post("/api/admin/login", s.handleLogin)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.auth.Require())
		r.Get("/services", s.handleListServices)
		r.Post("/services", s.handleCreateService)
		r.Get("/services/{id}", s.handleGetService)
		r.Put("/services/{id}", s.handleUpdateService)
		r.Put("/services/{id}/chats", s.handleSetAuthorizations)
		r.Delete("/services/{id}", s.handleDeleteService)

		r.Get("/chats", s.handleListChats)
		r.Post("/chats", s.handleAddChat)
		r.Put("/chats/{id}", s.handleUpdateChat)
		r.Post("/chats/{id}/toggle-tester", s.handleToggleTester)
		r.Post("/chats/refresh", s.handleRefreshChats)
		r.Delete("/chats", s.handleClearChats)

		r.Get("/events", s.handleListEvents)
		r.Post("/test-message", s.handleTestMessage)
	})
	return r
}

// ---------------- notify ----------------

type notifyRequest struct {
	Message string `json:"message"`
}

type notifyResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Results []usecase.ChatResult `json:"results"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	// Decode leniently: an unreadable body behaves like an empty message, so
	// authentication is always checked first and a bad key never learns
	// anything from validation ordering.
	var req notifyRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	res, err := s.dispatcher.Notify(r.Context(), r.Header.Get(apiKeyHeader), req.Message)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	msg := "all notifications sent"
	if !res.Success {
		msg = "some notifications failed"
	}
	writeJSON(w, http.StatusOK, notifyResponse{
		Success: res.Success,
		Message: msg,
		Results: res.Results,
	})
}

// ---------------- admin: auth ----------------

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ---------------- admin: services ----------------

type serviceDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Label             string   `json:"label"`
	Description       string   `json:"description"`
	APIKey            string   `json:"api_key"`
	AuthorizedChatIDs []string `json:"authorized_chat_ids"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func toServiceDTO(s *model.Service) serviceDTO {
	ids := s.AuthorizedChatIDs
	if ids == nil {
		ids = []string{}
	}
	return serviceDTO{
		ID:                s.ID,
		Name:              s.Name,
		Label:             s.Label,
		Description:       s.Description,
		APIKey:            s.APIKey,
		AuthorizedChatIDs: ids,
		CreatedAt:         s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         s.UpdatedAt.Format(time.RFC3339),
	}
}

type serviceRequest struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]serviceDTO, 0, len(list))
	for _, svc := range list {
		out = append(out, toServiceDTO(svc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	svc, err := s.services.Create(r.Context(), req.Name, req.Label, req.Description)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceDTO(svc))
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.services.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTO(svc))
}

func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	svc, err := s.services.UpdateDetails(r.Context(), chi.URLParam(r, "id"), req.Name, req.Label, req.Description)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTO(svc))
}

type authorizationsRequest struct {
	ChatIDs []string `json:"chat_ids"`
}

func (s *Server) handleSetAuthorizations(w http.ResponseWriter, r *http.Request) {
	var req authorizationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.services.SetAuthorizations(r.Context(), chi.URLParam(r, "id"), req.ChatIDs); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- admin: chats ----------------

type chatDTO struct {
	ID          string `json:"id"`
	ChatID      int64  `json:"chat_id"`
	Title       string `json:"title"`
	Username    string `json:"username"`
	ChatType    string `json:"chat_type"`
	Label       string `json:"label"`
	Description string `json:"description"`
	IsTester    bool   `json:"is_tester"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toChatDTO(c *model.Chat) chatDTO {
	return chatDTO{
		ID:          c.ID,
		ChatID:      c.ChatID,
		Title:       c.Title,
		Username:    c.Username,
		ChatType:    string(c.ChatType),
		Label:       c.Label,
		Description: c.Description,
		IsTester:    c.IsTester,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
}

type chatRequest struct {
	ChatID      int64  `json:"chat_id"`
	Title       string `json:"title"`
	Username    string `json:"username"`
	ChatType    string `json:"chat_type"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	list, err := s.chats.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]chatDTO, 0, len(list))
	for _, c := range list {
		out = append(out, toChatDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	chat, err := s.chats.Add(r.Context(), req.ChatID, req.Title, req.Username, model.ChatType(req.ChatType), req.Label, req.Description)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChatDTO(chat))
}

func (s *Server) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	chat, err := s.chats.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "chat title is required")
		return
	}
	chat.Title = req.Title
	chat.Username = req.Username
	if req.ChatType != "" {
		chat.ChatType = model.ChatType(req.ChatType)
	}
	chat.Label = req.Label
	chat.Description = req.Description
	if err := s.chats.UpdateDetails(r.Context(), chat); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatDTO(chat))
}

func (s *Server) handleToggleTester(w http.ResponseWriter, r *http.Request) {
	chat, err := s.chats.ToggleTester(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatDTO(chat))
}

func (s *Server) handleRefreshChats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.chats.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"discovered": sum.Discovered,
		"created":    sum.Created,
		"updated":    sum.Updated,
	})
}

func (s *Server) handleClearChats(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.Clear(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- admin: events ----------------

type eventDTO struct {
	ID                string  `json:"id"`
	ServiceID         string  `json:"service_id"`
	ChatID            string  `json:"chat_id"`
	MessageContent    string  `json:"message_content"`
	TelegramMessageID *int64  `json:"telegram_message_id"`
	Success           bool    `json:"success"`
	ErrorMessage      *string `json:"error_message"`
	SentAt            string  `json:"sent_at"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f := repository.EventFilter{
		ServiceID: r.URL.Query().Get("service_id"),
		ChatID:    r.URL.Query().Get("chat_id"),
	}
	hist, err := s.events.History(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	events := make([]eventDTO, 0, len(hist.Events))
	for _, e := range hist.Events {
		events = append(events, eventDTO{
			ID:                e.ID,
			ServiceID:         e.ServiceID,
			ChatID:            e.ChatID,
			MessageContent:    e.MessageContent,
			TelegramMessageID: e.TelegramMessageID,
			Success:           e.Success,
			ErrorMessage:      e.ErrorMessage,
			SentAt:            e.SentAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":     events,
		"total":      hist.Stats.Total,
		"successful": hist.Stats.Successful,
		"failed":     hist.Stats.Failed,
	})
}

// ---------------- admin: test message ----------------

type testMessageRequest struct {
	ChatID  int64  `json:"chat_id"`
	Message string `json:"message"`
}

func (s *Server) handleTestMessage(w http.ResponseWriter, r *http.Request) {
	var req testMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ChatID == 0 || req.Message == "" {
		writeError(w, http.StatusBadRequest, "chat_id and message are required")
		return
	}
	res, err := s.client.SendMessage(r.Context(), req.ChatID, req.Message)
	if err != nil {
		msg := err.Error()
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": msg})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":             true,
		"telegram_message_id": res.TelegramMessageID,
	})
}

// ---------------- helpers ----------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid or missing API key")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
