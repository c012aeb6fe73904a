package controller

import (
	"angelamos-operations/internal/pkg/serverutils"
	"angelamos-operations/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILibraryController interface {
	RegisterRoutes(r fiber.Router)
	ListPosts(ctx *fiber.Ctx) error
	DeletePost(ctx *fiber.Ctx) error
	ListAccounts(ctx *fiber.Ctx) error
	DeleteAccount(ctx *fiber.Ctx) error
	ListNotes(ctx *fiber.Ctx) error
	DeleteNote(ctx *fiber.Ctx) error
}

type libraryController struct {
	service   service.ILibraryService
	jwtSecret string
}

func NewLibraryController(service service.ILibraryService, jwtSecret string) ILibraryController {
	return &libraryController{service: service, jwtSecret: jwtSecret}
}

func (c *libraryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/library/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("posts", c.ListPosts)
	h.Delete("posts/:id", c.DeletePost)
	h.Get("accounts", c.ListAccounts)
	h.Delete("accounts/:id", c.DeleteAccount)
	h.Get("notes", c.ListNotes)
	h.Delete("notes/:id", c.DeleteNote)
}

func (c *libraryController) ListPosts(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ListPosts(requestContext(ctx), userId, ctx.QueryBool("refresh"))
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get scheduled posts", res))
}

func (c *libraryController) DeletePost(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathId(ctx)
	if err != nil {
		return err
	}
	if err := c.service.DeletePost(requestContext(ctx), userId, id); err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete scheduled post", nil))
}

func (c *libraryController) ListAccounts(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ListAccounts(requestContext(ctx), userId, ctx.QueryBool("refresh"))
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get accounts", res))
}

func (c *libraryController) DeleteAccount(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathId(ctx)
	if err != nil {
		return err
	}
	if err := c.service.DeleteAccount(requestContext(ctx), userId, id); err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete account", nil))
}

func (c *libraryController) ListNotes(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ListNotes(requestContext(ctx), userId, ctx.QueryBool("refresh"))
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get notes", res))
}

func (c *libraryController) DeleteNote(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathId(ctx)
	if err != nil {
		return err
	}
	if err := c.service.DeleteNote(requestContext(ctx), userId, id); err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete note", nil))
}
