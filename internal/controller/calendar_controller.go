package controller

import (
	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/serverutils"
	"angelamos-operations/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICalendarController interface {
	RegisterRoutes(r fiber.Router)
	Range(ctx *fiber.Ctx) error
	Navigate(ctx *fiber.Ctx) error
	Posts(ctx *fiber.Ctx) error
}

type calendarController struct {
	service   service.ICalendarService
	jwtSecret string
}

func NewCalendarController(service service.ICalendarService, jwtSecret string) ICalendarController {
	return &calendarController{service: service, jwtSecret: jwtSecret}
}

func (c *calendarController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/calendar/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("range", c.Range)
	h.Get("navigate", c.Navigate)
	h.Get("posts", c.Posts)
}

func parseCalendarQuery(ctx *fiber.Ctx) (*dto.CalendarQuery, error) {
	return parseQuery[dto.CalendarQuery](ctx)
}

func (c *calendarController) Range(ctx *fiber.Ctx) error {
	q, err := parseCalendarQuery(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Range(q)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Calendar range", res))
}

func (c *calendarController) Navigate(ctx *fiber.Ctx) error {
	q, err := parseCalendarQuery(ctx)
	if err != nil {
		return err
	}
	if q.Action == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "action is required"))
	}
	res, err := c.service.Navigate(q)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Calendar range", res))
}

func (c *calendarController) Posts(ctx *fiber.Ctx) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	q, err := parseCalendarQuery(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Posts(requestContext(ctx), userId, q)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Calendar posts", res))
}
