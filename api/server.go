// Package api serves a small admin HTTP API over the worker store and the provider
// catalog.
package api

import (
	"errors"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/patch"
	"github.com/tbxark/intakebot/worker"
)

type Server struct {
	workers worker.Store
	catalog *catalog.Catalog
}

// New builds the fiber app with every route registered.
func New(workers worker.Store, cat *catalog.Catalog) *fiber.App {
	s := &Server{workers: workers, catalog: cat}
	app := fiber.New(fiber.Config{
		AppName:               "intakebot",
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/healthz", s.health)
	app.Get("/workers", s.listWorkers)
	app.Get("/workers/:id", s.getWorker)
	app.Patch("/workers/:id", s.patchWorker)
	app.Put("/workers/:id", s.replaceWorker)
	app.Delete("/workers/:id", s.deleteWorker)
	app.Get("/categories", s.listCategories)
	app.Get("/categories/:name/providers", s.listProviders)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, worker.ErrNotFound), errors.Is(err, catalog.ErrCategoryNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, worker.ErrInvalidRecord), errors.Is(err, patch.ErrPathNotAllowed):
		code = fiber.StatusBadRequest
	case errors.Is(err, worker.ErrDuplicateID):
		code = fiber.StatusConflict
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("Admin request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listWorkers(c *fiber.Ctx) error {
	var category worker.Category
	if q := c.Query("category"); q != "" {
		parsed, err := worker.ParseCategory(q)
		if err != nil {
			return err
		}
		category = parsed
	}
	records, err := s.workers.List(c.UserContext(), category)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (s *Server) getWorker(c *fiber.Ctx) error {
	r, ok, err := s.workers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if !ok {
		return worker.ErrNotFound
	}
	return c.JSON(r)
}

func (s *Server) patchWorker(c *fiber.Ctx) error {
	var ops []patch.Operation
	if err := c.BodyParser(&ops); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be a JSON Patch array")
	}
	r, err := worker.Patch(c.UserContext(), s.workers, c.Params("id"), ops)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (s *Server) replaceWorker(c *fiber.Ctx) error {
	var next worker.Record
	if err := c.BodyParser(&next); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be a worker record")
	}
	r, err := worker.Replace(c.UserContext(), s.workers, c.Params("id"), next)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (s *Server) deleteWorker(c *fiber.Ctx) error {
	if err := s.workers.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listCategories(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Categories())
}

func (s *Server) listProviders(c *fiber.Ctx) error {
	providers, err := s.catalog.FindAvailable(c.Params("name"), c.Query("location"))
	if err != nil {
		return err
	}
	return c.JSON(providers)
}
