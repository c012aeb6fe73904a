package controller

import (
	"context"

	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/serverutils"
	"angelamos-operations/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IWorkflowController interface {
	RegisterRoutes(r fiber.Router)
	Get(ctx *fiber.Ctx) error
	Start(ctx *fiber.Ctx) error
	GenerateIdeas(ctx *fiber.Ctx) error
	SelectIdea(ctx *fiber.Ctx) error
	GenerateHooks(ctx *fiber.Ctx) error
	ToggleHook(ctx *fiber.Ctx) error
	AnalyzeHooks(ctx *fiber.Ctx) error
	ChooseHook(ctx *fiber.Ctx) error
	GenerateScript(ctx *fiber.Ctx) error
	SelectVariation(ctx *fiber.Ctx) error
	AnalyzeScript(ctx *fiber.Ctx) error
	FinalReview(ctx *fiber.Ctx) error
	GoToStage(ctx *fiber.Ctx) error
	GoBack(ctx *fiber.Ctx) error
	ResetFromStage(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	ClearError(ctx *fiber.Ctx) error
}

type workflowController struct {
	service   service.IWorkflowService
	jwtSecret string
}

func NewWorkflowController(service service.IWorkflowService, jwtSecret string) IWorkflowController {
	return &workflowController{service: service, jwtSecret: jwtSecret}
}

func (c *workflowController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/workflow/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("", c.Get)
	h.Post("start", c.Start)
	h.Post("ideas", c.GenerateIdeas)
	h.Post("idea/select", c.SelectIdea)
	h.Post("hooks", c.GenerateHooks)
	h.Post("hooks/toggle", c.ToggleHook)
	h.Post("hooks/analyze", c.AnalyzeHooks)
	h.Post("hooks/choose", c.ChooseHook)
	h.Post("script", c.GenerateScript)
	h.Post("variation", c.SelectVariation)
	h.Post("script/analyze", c.AnalyzeScript)
	h.Post("review", c.FinalReview)
	h.Post("stage", c.GoToStage)
	h.Post("back", c.GoBack)
	h.Post("reset-from", c.ResetFromStage)
	h.Post("reset", c.Reset)
	h.Delete("error", c.ClearError)
}

func respond(ctx *fiber.Ctx, message string, op func(context.Context, uuid.UUID) (*dto.WorkflowResponse, error)) error {
	userId, err := currentUser(ctx)
	if err != nil {
		return err
	}
	res, err := op(requestContext(ctx), userId)
	if err != nil {
		return toAppError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse(message, res))
}

func respondWithBody[T any](ctx *fiber.Ctx, message string, op func(context.Context, uuid.UUID, *T) (*dto.WorkflowResponse, error)) error {
	// Every field of the generation requests is optional.
	req, err := parseBody[T](ctx)
	if err != nil {
		return err
	}
	return respond(ctx, message, func(rctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error) {
		return op(rctx, userId, req)
	})
}

func (c *workflowController) Get(ctx *fiber.Ctx) error {
	return respond(ctx, "Success get workflow", c.service.Get)
}

func (c *workflowController) Start(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Workflow started", c.service.Start)
}

func (c *workflowController) GenerateIdeas(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Ideas generated", c.service.GenerateIdeas)
}

func (c *workflowController) SelectIdea(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Idea selected", c.service.SelectIdea)
}

func (c *workflowController) GenerateHooks(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Hooks generated", c.service.GenerateHooks)
}

func (c *workflowController) ToggleHook(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Hook selection updated", c.service.ToggleHook)
}

func (c *workflowController) AnalyzeHooks(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Hooks analyzed", c.service.AnalyzeHooks)
}

func (c *workflowController) ChooseHook(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Hook chosen", c.service.ChooseHook)
}

func (c *workflowController) GenerateScript(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Script generated", c.service.GenerateScript)
}

func (c *workflowController) SelectVariation(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Variation selected", c.service.SelectVariation)
}

func (c *workflowController) AnalyzeScript(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Script analyzed", c.service.AnalyzeScript)
}

func (c *workflowController) FinalReview(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Final review ready", c.service.FinalReview)
}

func (c *workflowController) GoToStage(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Stage changed", c.service.GoToStage)
}

func (c *workflowController) GoBack(ctx *fiber.Ctx) error {
	return respond(ctx, "Went back", c.service.GoBack)
}

func (c *workflowController) ResetFromStage(ctx *fiber.Ctx) error {
	return respondWithBody(ctx, "Workflow reset from stage", c.service.ResetFromStage)
}

func (c *workflowController) Reset(ctx *fiber.Ctx) error {
	return respond(ctx, "Workflow reset", c.service.Reset)
}

func (c *workflowController) ClearError(ctx *fiber.Ctx) error {
	return respond(ctx, "Error cleared", c.service.ClearError)
}
