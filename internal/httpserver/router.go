package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"projecthub/internal/handler"
	"projecthub/internal/service"
)

// Handlers groups every API handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Projects  *handler.ProjectHandler
	Tasks     *handler.TaskHandler
	Documents *handler.DocumentHandler
	Comments  *handler.CommentHandler
	Profiles  *handler.ProfileHandler
	Activity  *handler.ActivityHandler
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, auth *service.AuthService, ready Pinger, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(TraceMiddleware(), RecoveryMiddleware(logger), RequestLogMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := ready.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Public
	api.POST("/register", h.Auth.Register)
	api.POST("/token", h.Auth.Login)
	api.POST("/token/refresh", h.Auth.Refresh)

	// Protected
	authed := api.Group("/")
	authed.Use(AuthMiddleware(auth, logger))
	{
		authed.POST("/logout", h.Auth.Logout)

		authed.GET("/projects", h.Projects.ListProjects)
		authed.POST("/projects", h.Projects.CreateProject)
		authed.GET("/projects/:id", h.Projects.GetProject)
		authed.PUT("/projects/:id", h.Projects.UpdateProject)
		authed.PATCH("/projects/:id", h.Projects.UpdateProject)
		authed.DELETE("/projects/:id", h.Projects.DeleteProject)

		authed.GET("/tasks", h.Tasks.ListTasks)
		authed.POST("/tasks", h.Tasks.CreateTask)
		authed.GET("/tasks/:id", h.Tasks.GetTask)
		authed.PUT("/tasks/:id", h.Tasks.UpdateTask)
		authed.PATCH("/tasks/:id", h.Tasks.UpdateTask)
		authed.DELETE("/tasks/:id", h.Tasks.DeleteTask)
		authed.POST("/tasks/:id/assign", h.Tasks.AssignTask)

		authed.GET("/documents", h.Documents.ListDocuments)
		authed.POST("/documents", h.Documents.CreateDocument)

		authed.GET("/comments", h.Comments.ListComments)
		authed.POST("/comments", h.Comments.CreateComment)
		authed.PUT("/comments/:id", h.Comments.UpdateComment)
		authed.PATCH("/comments/:id", h.Comments.UpdateComment)
		authed.DELETE("/comments/:id", h.Comments.DeleteComment)

		authed.GET("/profiles", h.Profiles.ListProfiles)
		authed.GET("/profiles/me", h.Profiles.Me)
		authed.GET("/profiles/:id", h.Profiles.GetProfile)
		authed.PUT("/profiles/:id", h.Profiles.UpdateProfile)
		authed.PATCH("/profiles/:id", h.Profiles.UpdateProfile)
		authed.DELETE("/profiles/:id", h.Profiles.DeleteProfile)

		authed.GET("/timeline", h.Activity.ListTimeline)
		authed.GET("/notifications", h.Activity.ListNotifications)
		authed.POST("/notifications/:id/read", h.Activity.MarkNotificationRead)
	}

	return &Router{Engine: r}
}

// NewHandlers wires one handler per service.
func NewHandlers(deps service.Deps, auth *service.AuthService) Handlers {
	log := deps.Logger
	return Handlers{
		Auth:      handler.NewAuthHandler(auth, log),
		Projects:  handler.NewProjectHandler(service.NewProjectService(deps), log),
		Tasks:     handler.NewTaskHandler(service.NewTaskService(deps), log),
		Documents: handler.NewDocumentHandler(service.NewDocumentService(deps), log),
		Comments:  handler.NewCommentHandler(service.NewCommentService(deps), log),
		Profiles:  handler.NewProfileHandler(service.NewProfileService(deps), log),
		Activity: handler.NewActivityHandler(
			service.NewTimelineService(deps),
			service.NewNotificationService(deps),
			log,
		),
	}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
