package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"

	"remindd/pkg/journal"
	"remindd/pkg/reminders"
)

const defaultHistoryLimit = 50

// newRouter builds the HTTP input surface. This layer owns input validation;
// the engine assumes everything handed to it is already valid. The journal
// store may be nil, in which case /history is not served.
func newRouter(engine *reminders.Engine, store *journal.Store, logger zerolog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(requestLogger(logger))

	// POST /reminders - Create or replace a reminder
	router.Post("/reminders", func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			ID        string `json:"id,omitempty"`
			Title     string `json:"title,omitempty"`
			Recipient string `json:"recipient,omitempty"`
			DueTime   string `json:"dueTime,omitempty"`
		}{}
		err := json.NewDecoder(r.Body).Decode(req)
		if err != nil {
			http.Error(w, "Error parsing request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		if req.ID == "" {
			http.Error(w, "id is empty", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title is empty", http.StatusBadRequest)
			return
		}
		if req.Recipient == "" || !strings.Contains(req.Recipient, "@") {
			http.Error(w, "recipient must be an email address", http.StatusBadRequest)
			return
		}
		if req.DueTime == "" {
			http.Error(w, "dueTime is empty", http.StatusBadRequest)
			return
		}
		// If dueTime is in the format "+duration", interpret it as time from now
		if len(req.DueTime) > 1 && req.DueTime[0] == '+' {
			dur, err := time.ParseDuration(req.DueTime[1:])
			if err != nil {
				http.Error(w, "Failed to parse dueTime as relative time: "+err.Error(), http.StatusBadRequest)
				return
			}
			req.DueTime = time.Now().Add(dur).Format(time.RFC3339)
		}

		dueTime, err := time.Parse(time.RFC3339, req.DueTime)
		if err != nil {
			http.Error(w, "Failed to parse dueTime: "+err.Error(), http.StatusBadRequest)
			return
		}

		engine.AddOrUpdate(reminders.Reminder{
			ID:        req.ID,
			Title:     req.Title,
			Recipient: req.Recipient,
			DueTime:   dueTime,
		})

		w.WriteHeader(http.StatusNoContent)
	})

	// GET /reminders - List pending reminders sorted by due time
	router.Get("/reminders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, engine.List(), logger)
	})

	// GET /history - Recent dispatch attempts, newest first
	if store != nil {
		router.Get("/history", func(w http.ResponseWriter, r *http.Request) {
			limit := defaultHistoryLimit
			if qs := r.URL.Query().Get("limit"); qs != "" {
				n, err := strconv.Atoi(qs)
				if err != nil || n <= 0 {
					http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
					return
				}
				limit = n
			}

			entries, err := store.Recent(r.Context(), limit)
			if err != nil {
				http.Error(w, "Failed to read journal: "+err.Error(), http.StatusInternalServerError)
				return
			}
			if entries == nil {
				entries = []journal.Entry{}
			}

			writeJSON(w, entries, logger)
		})
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return router
}

func writeJSON(w http.ResponseWriter, v interface{}, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to write response")
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
