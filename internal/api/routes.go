// internal/api/routes.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"astroscope/internal/conversation"
	"astroscope/internal/models"

	"github.com/go-chi/chi/v5"
)

type submitRequest struct {
	Text string `json:"text"`
}

// RegisterRoutes mounts the conversation and lesson endpoints.
func RegisterRoutes(r chi.Router, s *Server) {
	r.Route("/api/conversations", func(r chi.Router) {
		r.Post("/", s.handleCreateConversation)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/turns", s.handleTurns)
			r.Post("/messages", s.handleSubmit)
			r.Get("/stream", s.handleStream)
			r.Get("/followups", s.handleFollowUps)
			r.Post("/lessons/{lessonId}/show", s.handleShowLesson)
			r.Delete("/", s.handleDeleteConversation)
		})
	})

	r.Route("/api/lessons", func(r chi.Router) {
		r.Get("/trending", s.handleCategories)
		r.Get("/trending/{category}", s.handleTrending)
		r.Get("/{lessonId}", s.handleLesson)
	})
}

func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (*conversation.Conversation, bool) {
	c, ok := s.opts.Manager.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "conversation not found")
	}
	return c, ok
}

func lessonID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "lessonId"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_LESSON_ID", "lesson id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	c := s.opts.Manager.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID()})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Manager.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conversation(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "body must be JSON with a text field")
		return
	}

	if _, err := c.Submit(s.runCtx, req.Text); err != nil {
		switch {
		case errors.Is(err, conversation.ErrBlankQuestion):
			writeError(w, http.StatusBadRequest, "BLANK_QUESTION", "question text is required")
		case errors.Is(err, conversation.ErrTurnInFlight):
			writeError(w, http.StatusConflict, "TURN_IN_FLIGHT", "a question is already being answered")
		default:
			writeError(w, http.StatusInternalServerError, "SUBMIT_FAILED", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":    c.ID(),
		"phase": c.Phase(),
	})
}

func (s *Server) handleFollowUps(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questions": c.FollowUps(r.Context())})
}

func (s *Server) handleShowLesson(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conversation(w, r)
	if !ok {
		return
	}
	id, ok := lessonID(w, r)
	if !ok {
		return
	}

	lesson, err := c.ShowLesson(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "LESSON_NOT_FOUND", "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := lessonID(w, r)
	if !ok {
		return
	}
	lesson, found := s.opts.Manager.LookupLesson(id)
	if !found {
		writeError(w, http.StatusNotFound, "LESSON_NOT_FOUND", "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": s.opts.Categories})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	lessons := s.opts.Trending.ByCategory(category)
	if lessons == nil {
		lessons = []models.LessonRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"lessons":  lessons,
	})
}
