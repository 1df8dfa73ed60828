package http

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	authUC AuthUseCase
	sentry bool
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithSentry attaches a Sentry hub to every request so that 5xx errors are
// reported. The Sentry client must be initialized by the caller.
func WithSentry(enabled bool) Options {
	return func(s *Server) {
		s.sentry = enabled
	}
}

func New(uc *usecase.UseCases, opts ...Options) (*Server, error) {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		authUC: uc.Auth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.authUC == nil {
		return nil, goerr.New("authentication is not configured")
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	if s.sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(r.Context(), w, "ok")
	})

	r.Post("/api/auth/login", authLoginHandler(s.authUC))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.authUC))

		r.Get("/auth/me", authMeHandler())

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", listProjectsHandler(uc.Project))
			r.Post("/", createProjectHandler(uc.Project))
			r.Get("/{id}", getProjectHandler(uc.Project))
			r.Put("/{id}", updateProjectHandler(uc.Project))
			r.Delete("/{id}", deleteProjectHandler(uc.Project))
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", listNotesHandler(uc.Note))
			r.Post("/", createNoteHandler(uc.Note))
			r.Get("/{id}", getNoteHandler(uc.Note))
			r.Delete("/{id}", deleteNoteHandler(uc.Note))
		})

		r.Route("/action-items", func(r chi.Router) {
			r.Get("/", listActionItemsHandler(uc.ActionItem))
			r.Post("/", createActionItemHandler(uc.ActionItem))
			r.Post("/tag", tagActionItemsHandler(uc.ActionItem))
			r.Get("/{id}", getActionItemHandler(uc.ActionItem))
			r.Put("/{id}", updateActionItemHandler(uc.ActionItem))
			r.Delete("/{id}", deleteActionItemHandler(uc.ActionItem))
		})

		r.Route("/ai-configs/{use_case}", func(r chi.Router) {
			r.Get("/", listAIConfigsHandler(uc.AIConfig))
			r.Post("/", createAIConfigHandler(uc.AIConfig))
			r.Get("/active", getActiveAIConfigHandler(uc.AIConfig))
			r.Get("/{version}", getAIConfigHandler(uc.AIConfig))
			r.Post("/{version}/activate", activateAIConfigHandler(uc.AIConfig))
			r.Delete("/{version}", deleteAIConfigHandler(uc.AIConfig))
		})

		r.Route("/file-jobs", func(r chi.Router) {
			r.Get("/", listFileJobsHandler(uc.FileJob))
			r.Post("/", uploadFileJobHandler(uc.FileJob))
			r.Get("/{id}", getFileJobHandler(uc.FileJob))
			r.Post("/{id}/interrupt", interruptFileJobHandler(uc.FileJob))
			r.Get("/{id}/download", downloadFileJobHandler(uc.FileJob))
		})

		r.Get("/metrics/tagging", taggingMetricsHandler(uc.Metrics))
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
