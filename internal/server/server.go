// Package server - эталонная реализация REST API постов. На нём гоняются
// тесты клиента, а `cmd/server` поднимает его для локальной разработки.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/storage"
)

// BasePath - путь, по которому смонтирована коллекция постов.
const BasePath = "/api/posts"

const writeWait = 10 * time.Second

// Server - корневая структура API, содержит все зависимости обработчиков.
type Server struct {
	Storage  storage.Storage
	Hub      *Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New собирает сервер поверх хранилища.
func New(store storage.Storage, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Storage: store,
		Hub:     NewHub(log),
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes возвращает HTTP-обработчик со всеми маршрутами под BasePath.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.logRequests)

	router.Route(BasePath, func(r chi.Router) {
		r.Get("/", s.listPosts)
		r.Post("/", s.createPost)
		r.Get("/events", s.events)
		r.Get("/{id}", s.getPost)
		r.Put("/{id}", s.updatePost)
		r.Delete("/{id}", s.deletePost)
	})
	return router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.log.Info("handled",
			"method", r.Method,
			"url", r.URL.String(),
			"status", m.Code,
			"duration", m.Duration,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.Storage.ListPosts(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.Storage.GetPost(r.Context(), postID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	post, err := s.Storage.CreatePost(r.Context(), draft)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.Hub.Publish(domain.Event{Type: domain.EventCreated, ID: post.ID, Post: post})
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	post, err := s.Storage.UpdatePost(r.Context(), postID(r), draft)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.Hub.Publish(domain.Event{Type: domain.EventUpdated, ID: post.ID, Post: post})
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id := postID(r)
	if err := s.Storage.DeletePost(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.Hub.Publish(domain.Event{Type: domain.EventDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// events стримит ленту изменений через websocket до отключения клиента.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		s.log.Warn("feed upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	subID, ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(subID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Info("feed subscriber gone", "subscriber", subID, "err", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("storage failure", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func postID(r *http.Request) domain.ID {
	return domain.ID(chi.URLParam(r, "id"))
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (domain.Draft, bool) {
	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return draft, false
	}
	return draft, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
