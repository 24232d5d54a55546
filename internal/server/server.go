package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nick-dorsch/slotplan/internal/calendar"
	"github.com/nick-dorsch/slotplan/internal/export"
	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/internal/planner"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

// maxImportBytes caps uploaded import files.
const maxImportBytes = 10 << 20

type Server struct {
	svc     *planner.Service
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
	server  *http.Server
}

type Option func(*Server)

// WithRateLimit allows perSec requests per second with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(svc *planner.Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API routes wrapped in the rate limiter.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PUT /api/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/drop", s.handleDrop)
	mux.HandleFunc("POST /api/tasks/{id}/resize", s.handleResize)
	mux.HandleFunc("POST /api/tasks/{id}/assign", s.handleAssign)

	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/members", s.handleMembers)
	mux.HandleFunc("GET /api/task-types", s.handleTaskTypes)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/export", s.handleExport)

	return s.limit(mux)
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("http api listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Debug().Str("path", r.URL.Path).Msg("rate limited")
			w.Header().Set("Retry-After", "1")
			s.fail(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.svc.Tasks())
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in planner.TaskInput
	if err := decode(r, &in); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.svc.Dispatch(r.Context(), planner.CreateTask{Input: in})
	s.respondResult(w, http.StatusCreated, res, err)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	s.respond(w, http.StatusOK, task)
}

// handleUpdateTask applies the body on top of the current values, so
// omitted fields are kept and explicit nulls clear them.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.svc.Dispatch(r.Context(), planner.UpdateTask{
		ID: r.PathValue("id"),
		Patch: func(in *planner.TaskInput) error {
			return json.Unmarshal(body, in)
		},
	})
	s.respondResult(w, http.StatusOK, res, err)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Dispatch(r.Context(), planner.DeleteTask{ID: r.PathValue("id")})
	s.respondResult(w, http.StatusOK, res, err)
}

type dropRequest struct {
	Start string `json:"start"`
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var body dropRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	start, err := calendar.ParseInstant(body.Start)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.svc.Dispatch(r.Context(), planner.DragReschedule{ID: r.PathValue("id"), Start: start})
	s.respondResult(w, http.StatusOK, res, err)
}

type resizeRequest struct {
	End string `json:"end"`
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var body resizeRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	end, err := calendar.ParseInstant(body.End)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.svc.Dispatch(r.Context(), planner.ResizeDuration{ID: r.PathValue("id"), End: end})
	s.respondResult(w, http.StatusOK, res, err)
}

type assignRequest struct {
	Member string `json:"member"`
	Clear  bool   `json:"clear"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var body assignRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.svc.Dispatch(r.Context(), planner.AssignTask{
		ID:     r.PathValue("id"),
		Member: body.Member,
		Clear:  body.Clear,
	})
	s.respondResult(w, http.StatusOK, res, err)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.svc.Events()
	if events == nil {
		events = []models.CalendarEvent{}
	}
	s.respond(w, http.StatusOK, events)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	members := s.svc.Registry().Members()
	if members == nil {
		members = []models.MemberProfile{}
	}
	s.respond(w, http.StatusOK, members)
}

func (s *Server) handleTaskTypes(w http.ResponseWriter, r *http.Request) {
	reg := s.svc.Registry()
	types := map[string][]string{}
	for _, tt := range reg.TaskTypes() {
		types[tt] = reg.QualifiedMembers(tt)
	}
	s.respond(w, http.StatusOK, types)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.svc.Stats())
}

// handleImport accepts either a multipart upload in the "file" field, with
// the format taken from the file name, or a raw body with ?format=csv|xlsx|json.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var (
		rows []map[string]any
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("missing file: %w", ferr))
			return
		}
		defer file.Close()
		rows, err = importer.Read(file, importer.Format(header.Filename))
	} else {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = "json"
		}
		rows, err = importer.Read(r.Body, format)
	}
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.svc.Dispatch(r.Context(), planner.ImportBatch{Rows: rows})
	s.respondResult(w, http.StatusOK, res, err)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	name := export.FileName(s.now())
	contentType := "application/json"
	if format == "yaml" {
		name = name[:len(name)-len(".json")] + ".yaml"
		contentType = "application/yaml"
	} else if format != "json" {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("unsupported export format %q", format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.Write(w, s.svc.Tasks(), format); err != nil {
		s.log.Error().Err(err).Msg("failed to write export")
	}
}

type resultResponse struct {
	*planner.Result
	SaveError string `json:"saveError,omitempty"`
}

func (s *Server) respondResult(w http.ResponseWriter, status int, res *planner.Result, err error) {
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	resp := resultResponse{Result: res}
	if res.SaveErr != nil {
		resp.SaveError = res.SaveErr.Error()
	}
	s.respond(w, status, resp)
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, planner.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
