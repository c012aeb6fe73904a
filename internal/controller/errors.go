package controller

import (
	"context"
	"errors"

	"angelamos-operations/internal/pkg/serverutils"
	"angelamos-operations/internal/service"
	"angelamos-operations/internal/workflow"
	"angelamos-operations/pkg/studio"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var prerequisiteErrors = []error{
	workflow.ErrNotStarted,
	workflow.ErrIdeaNotChosen,
	workflow.ErrTopicMissing,
	workflow.ErrHooksNotGenerated,
	workflow.ErrHookSelectionBounds,
	workflow.ErrHookNotChosen,
	workflow.ErrScriptNotGenerated,
	workflow.ErrVariationsMissing,
	workflow.ErrAnalysisMissing,
	workflow.ErrStageSkipped,
}

// toAppError attaches the HTTP status a service error is rendered with.
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *studio.APIError
	switch {
	case errors.Is(err, workflow.ErrStaleResponse),
		errors.Is(err, workflow.ErrRequestInFlight),
		errors.Is(err, service.ErrStageMismatch):
		return serverutils.NewAppError(fiber.StatusConflict, err)
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownIdea),
		errors.Is(err, service.ErrUnknownHook),
		errors.Is(err, service.ErrHookNotPicked),
		errors.Is(err, service.ErrUnknownChoice):
		return serverutils.NewAppError(fiber.StatusBadRequest, err)
	case errors.Is(err, studio.ErrMalformedResponse):
		return serverutils.NewAppError(fiber.StatusBadGateway, err)
	case errors.Is(err, context.DeadlineExceeded):
		return serverutils.NewAppError(fiber.StatusGatewayTimeout, err)
	case errors.As(err, &apiErr):
		// Upstream client errors (auth, not found, validation) pass through; the rest are ours to hide.
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return &serverutils.AppError{Status: apiErr.StatusCode, Message: apiErr.Detail, Err: err}
		}
		return serverutils.NewAppError(fiber.StatusBadGateway, err)
	}
	for _, target := range prerequisiteErrors {
		if errors.Is(err, target) {
			return serverutils.NewAppError(fiber.StatusUnprocessableEntity, err)
		}
	}
	return err
}

func currentUser(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID")
	}
	return userId, nil
}

// requestContext carries the caller's token so studio calls run on their behalf.
func requestContext(ctx *fiber.Ctx) context.Context {
	token, _ := ctx.Locals("token").(string)
	return studio.WithToken(ctx.UserContext(), token)
}

func pathId(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}
	return id, nil
}

func parseQuery[T any](ctx *fiber.Ctx) (*T, error) {
	var q T
	if err := ctx.QueryParser(&q); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(q); err != nil {
		return nil, err
	}
	return &q, nil
}

// parseBody accepts an empty body as the zero request.
func parseBody[T any](ctx *fiber.Ctx) (*T, error) {
	var req T
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}
