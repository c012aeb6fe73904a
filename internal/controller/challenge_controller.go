package controller

import (
	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/serverutils"
	"angelamos-operations/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChallengeController interface {
	RegisterRoutes(r fiber.Router)
	Active(ctx *fiber.Ctx) error
	Start(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Log(ctx *fiber.Ctx) error
	LogDay(ctx *fiber.Ctx) error
	UpdateLog(ctx *fiber.Ctx) error
}

type challengeController struct {
	service   service.IChallengeService
	jwtSecret string
}

func NewChallengeController(service service.IChallengeService, jwtSecret string) IChallengeController {
	return &challengeController{service: service, jwtSecret: jwtSecret}
}

func (c *challengeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/challenge/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("active", c.Active)
	h.Post("start", c.Start)
	h.Get("history", c.History)
	h.Post("logs", c.LogDay)
	h.Get("logs/:date", c.Log)
	h.Put("logs/:date", c.UpdateLog)
}

func (c *challengeController) Active(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Active(requestContext(ctx), userId, ctx.QueryBool("refresh"))
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get active challenge", res))
}

func (c *challengeController) Start(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.ChallengeStartRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Start(requestContext(ctx), userId, req)
	if err != nil {
		return toAppError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Challenge started", res))
}

func (c *challengeController) History(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	q, err := parseQuery[dto.ChallengeHistoryQuery](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.History(requestContext(ctx), userId, q)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get challenge history", res))
}

func (c *challengeController) Log(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Log(requestContext(ctx), userId, ctx.Params("date"))
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get challenge log", res))
}

func (c *challengeController) LogDay(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	req, err := parseBody[dto.ChallengeLogRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.LogDay(requestContext(ctx), userId, req)
	if err != nil {
		return toAppError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Challenge day logged", res))
}

func (c *challengeController) UpdateLog(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	patch, err := parseBody[dto.ChallengeLogPatch](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.UpdateLog(requestContext(ctx), userId, ctx.Params("date"), patch)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Challenge log updated", res))
}
