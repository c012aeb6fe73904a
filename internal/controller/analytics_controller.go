package controller

import (
	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/serverutils"
	"angelamos-operations/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAnalyticsController interface {
	RegisterRoutes(r fiber.Router)
	Overview(ctx *fiber.Ctx) error
	BestTimes(ctx *fiber.Ctx) error
	TopPosts(ctx *fiber.Ctx) error
}

type analyticsController struct {
	service   service.IAnalyticsService
	jwtSecret string
}

func NewAnalyticsController(service service.IAnalyticsService, jwtSecret string) IAnalyticsController {
	return &analyticsController{service: service, jwtSecret: jwtSecret}
}

func (c *analyticsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/analytics/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("overview", c.Overview)
	h.Get("best-times", c.BestTimes)
	h.Get("posts/top", c.TopPosts)
}

func (c *analyticsController) Overview(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	q, err := parseQuery[dto.AnalyticsQuery](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Overview(requestContext(ctx), userId, q)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get analytics overview", res))
}

func (c *analyticsController) BestTimes(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	q, err := parseQuery[dto.AnalyticsQuery](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.BestTimes(requestContext(ctx), userId, q)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get best posting times", res))
}

func (c *analyticsController) TopPosts(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	q, err := parseQuery[dto.AnalyticsQuery](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.TopPosts(requestContext(ctx), userId, q)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get top posts", res))
}
