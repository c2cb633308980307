package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	apptasks "github.com/reviewhub/code-review-agent/internal/application/tasks"
	"github.com/reviewhub/code-review-agent/internal/application/webhook"
	"github.com/reviewhub/code-review-agent/internal/domain/gitrepo"
	"github.com/reviewhub/code-review-agent/internal/domain/review"
	domain "github.com/reviewhub/code-review-agent/internal/domain/tasks"
	"github.com/reviewhub/code-review-agent/internal/middleware"
)

const maxBodyBytes = 1 << 20 // webhook payloads are small; 1MB is generous

type Router struct {
	tasksSvc *apptasks.Service
	hooks    *webhook.Service
}

func NewRouter(tasksSvc *apptasks.Service, hooks *webhook.Service, health http.HandlerFunc) http.Handler {
	r := &Router{tasksSvc: tasksSvc, hooks: hooks}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Hub-Signature-256", "X-GitHub-Event"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(60, 10))

	if health == nil {
		health = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}
	}
	mux.Get("/health", health)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/webhook/github", r.wrap(r.handleWebhook))
	mux.Post("/analyze-pr", r.wrap(r.handleSubmit))
	mux.Get("/status/{task_id}", r.wrap(r.handleStatus))
	mux.Get("/results/{task_id}", r.wrap(r.handleResults))
	mux.Get("/tasks/latest", r.wrap(r.handleLatest))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var authErr *webhook.AuthError
			if errors.As(err, &authErr) {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			var valErr *gitrepo.ValidationError
			if errors.As(err, &valErr) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// externalStatus collapses the internal state machine to the four states
// clients see. RETRY is an internal scheduling detail, so it reads as
// processing.
func externalStatus(s domain.Status) string {
	switch s {
	case domain.StatusPending:
		return "pending"
	case domain.StatusProgress, domain.StatusRetry:
		return "processing"
	case domain.StatusSuccess:
		return "completed"
	case domain.StatusFailure:
		return "failed"
	default:
		return "unknown"
	}
}

// POST /webhook/github
func (r *Router) handleWebhook(w http.ResponseWriter, req *http.Request) error {
	// Signature covers the exact raw bytes; read before any parsing.
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if err := r.hooks.Verify(body, req.Header.Get("X-Hub-Signature-256")); err != nil {
		return err
	}

	if event := req.Header.Get("X-GitHub-Event"); event != "" && event != "pull_request" {
		return writeJSON(w, http.StatusOK, map[string]any{
			"message": "event ignored",
			"event":   event,
		})
	}

	ev, err := r.hooks.ParseEvent(body)
	if err != nil {
		return &gitrepo.ValidationError{Field: "payload", Message: err.Error()}
	}
	if !r.hooks.ShouldTrigger(ev.Action) {
		return writeJSON(w, http.StatusOK, map[string]any{
			"message":   "action ignored",
			"action":    ev.Action,
			"pr_number": ev.PRNumber,
		})
	}

	id, err := r.tasksSvc.Submit(req.Context(), ev.RepoURL, ev.PRNumber, "")
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"message":   "analysis queued",
		"task_id":   id,
		"action":    ev.Action,
		"pr_number": ev.PRNumber,
	})
}

// POST /analyze-pr
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		RepoURL     string `json:"repo_url"`
		PRNumber    int    `json:"pr_number"`
		GithubToken string `json:"github_token"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&body); err != nil {
		return &gitrepo.ValidationError{Field: "body", Message: err.Error()}
	}

	id, err := r.tasksSvc.Submit(req.Context(), body.RepoURL, body.PRNumber, body.GithubToken)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"task_id": id,
		"status":  "pending",
		"message": "analysis task queued",
	})
}

// GET /status/{task_id}
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	id := domain.TaskID(chi.URLParam(req, "task_id"))
	status, err := r.tasksSvc.Status(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"task_id": id,
		"status":  externalStatus(status),
	})
}

// resultsResponse deliberately re-maps the task record: the stored record
// carries the access token for workers and must never be echoed.
type resultsResponse struct {
	TaskID   domain.TaskID           `json:"task_id"`
	Status   string                  `json:"status"`
	Results  *review.AnalysisResult  `json:"results,omitempty"`
	Error    *domain.ErrorDescriptor `json:"error,omitempty"`
	Attempts int                     `json:"attempts"`
	Report   string                  `json:"report_url,omitempty"`
}

// GET /results/{task_id}
func (r *Router) handleResults(w http.ResponseWriter, req *http.Request) error {
	id := domain.TaskID(chi.URLParam(req, "task_id"))
	task, err := r.tasksSvc.Result(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resultsResponse{
		TaskID:   task.ID,
		Status:   externalStatus(task.Status),
		Results:  task.Result,
		Error:    task.Error,
		Attempts: task.Attempts,
		Report:   task.ReportURL,
	})
}

type taskSummary struct {
	TaskID    domain.TaskID           `json:"task_id"`
	RepoURL   string                  `json:"repo_url"`
	PRNumber  int                     `json:"pr_number"`
	Status    string                  `json:"status"`
	Attempts  int                     `json:"attempts"`
	Error     *domain.ErrorDescriptor `json:"error,omitempty"`
	Report    string                  `json:"report_url,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// GET /tasks/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.tasksSvc.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	out := make([]taskSummary, 0, len(list))
	for _, t := range list {
		out = append(out, taskSummary{
			TaskID:    t.ID,
			RepoURL:   t.RepoURL,
			PRNumber:  t.PRNumber,
			Status:    externalStatus(t.Status),
			Attempts:  t.Attempts,
			Error:     t.Error,
			Report:    t.ReportURL,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}
	return writeJSON(w, http.StatusOK, out)
}
