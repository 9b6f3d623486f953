// Package server exposes the REST API: signup/login/verify plus the
// authenticated task CRUD endpoints, backed by any store.TaskStore.
package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"taskboard/internal/auth"
	"taskboard/internal/store"
)

// Server owns the fiber app and its route handlers.
type Server struct {
	app   *fiber.App
	tasks store.TaskStore
	auth  *auth.Service
}

// New builds the app and registers all routes.
func New(tasks store.TaskStore, authSvc *auth.Service) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "taskboard",
			DisableStartupMessage: true,
		}),
		tasks: tasks,
		auth:  authSvc,
	}

	api := s.app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", s.handleSignup)
	authGroup.Post("/login", s.handleLogin)
	authGroup.Get("/verify", s.handleVerify)

	taskGroup := api.Group("/tasks", AuthMiddleware(s.auth))
	taskGroup.Get("/", s.handleListTasks)
	taskGroup.Post("/", s.handleCreateTask)
	taskGroup.Get("/:id", s.handleGetTask)
	taskGroup.Put("/:id", s.handleUpdateTask)
	taskGroup.Delete("/:id", s.handleDeleteTask)

	return s
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
