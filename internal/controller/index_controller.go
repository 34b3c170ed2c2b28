package controller

import (
	"car-rental-assistant-be/internal/dto"
	"car-rental-assistant-be/internal/pkg/serverutils"
	"car-rental-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIndexController interface {
	RegisterRoutes(r fiber.Router)
	ReindexCars(ctx *fiber.Ctx) error
	ReindexCar(ctx *fiber.Ctx) error
	ReindexDocuments(ctx *fiber.Ctx) error
}

type indexController struct {
	indexingService service.IIndexingService
}

func NewIndexController(indexingService service.IIndexingService) IIndexController {
	return &indexController{
		indexingService: indexingService,
	}
}

func (c *indexController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/index/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("cars", c.ReindexCars)
	h.Post("cars/one", c.ReindexCar)
	h.Post("documents", c.ReindexDocuments)
}

// ReindexCars refreshes the whole fleet index. With ?force=true the content
// hash shortcut is bypassed and every active car is re-embedded.
func (c *indexController) ReindexCars(ctx *fiber.Ctx) error {
	res, err := c.indexingService.IndexAllCars(ctx.Context(), ctx.QueryBool("force"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success index cars", res))
}

func (c *indexController) ReindexCar(ctx *fiber.Ctx) error {
	var req dto.ReindexCarRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.indexingService.IndexCar(ctx.Context(), req.CarId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success index car", nil))
}

func (c *indexController) ReindexDocuments(ctx *fiber.Ctx) error {
	res, err := c.indexingService.IndexDocuments(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success index documents", res))
}
