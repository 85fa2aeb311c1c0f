// Package api exposes the HTTP query surface over the event store.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Server wires HTTP handlers to the event store. It only reads scraped data
// and owns the click counter and email captures; it never writes event
// records.
type Server struct {
	router chi.Router
	store  events.Store
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store events.Store, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.listEvents)
			r.Get("/{event_id}", s.getEvent)
		})
		r.Post("/emails", s.createEmail)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type eventListResponse struct {
	Events   []events.Event `json:"events"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, total, err := s.store.ListEvents(r.Context(), filter)
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	s.writeJSON(w, http.StatusOK, eventListResponse{
		Events:   list,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// getEvent returns one record and bumps its click counter; the counter is
// owned here, never by the scraping core.
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "event_id")
	event, err := s.store.IncrementClick(r.Context(), id)
	if errors.Is(err, events.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		s.logger.Error("get event failed", zap.String("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch event")
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

type emailRequest struct {
	Email   string `json:"email"`
	EventID string `json:"event_id"`
	OptIn   bool   `json:"opt_in"`
}

func (s *Server) createEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		s.writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if !req.OptIn {
		s.writeError(w, http.StatusBadRequest, "email opt-in is required")
		return
	}
	sig, err := s.store.CreateEmailSignup(r.Context(), events.EmailSignup{
		Email:   req.Email,
		EventID: req.EventID,
		OptIn:   req.OptIn,
	})
	switch {
	case errors.Is(err, events.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, events.ErrDuplicateEmail):
		s.writeError(w, http.StatusConflict, "email already registered")
	case err != nil:
		s.logger.Error("create email signup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to save email")
	default:
		s.writeJSON(w, http.StatusCreated, sig)
	}
}

func filterFromQuery(r *http.Request) (events.Filter, error) {
	q := r.URL.Query()
	f := events.Filter{
		Search:         q.Get("search"),
		IncludeExpired: q.Get("include_expired") == "true",
	}

	if src := q.Get("source"); src != "" {
		source := events.Source(src)
		if !source.Valid() {
			return events.Filter{}, errors.New("unknown source")
		}
		f.Source = source
	}
	if from := q.Get("date_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return events.Filter{}, errors.New("invalid date_from format, use YYYY-MM-DD")
		}
		f.From = &t
	}
	if to := q.Get("date_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return events.Filter{}, errors.New("invalid date_to format, use YYYY-MM-DD")
		}
		// Inclusive of the whole end date.
		end := t.Add(24*time.Hour - time.Second)
		f.To = &end
	}
	if page := q.Get("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return events.Filter{}, errors.New("page must be a positive integer")
		}
		f.Page = n
	}
	if size := q.Get("page_size"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 1 || n > events.MaxPageSize {
			return events.Filter{}, errors.New("page_size must be between 1 and 100")
		}
		f.PageSize = n
	}
	return f.Normalized(), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
