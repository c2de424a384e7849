package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/clipposter/internal/repository"
	"github.com/maheshrc27/clipposter/internal/service"
)

// OperatorKey is the fiber local holding who is acting on the API.
const OperatorKey = "operator"

func GetOperator(c *fiber.Ctx) string {
	operator, _ := c.Locals(OperatorKey).(string)
	return operator
}

func errorStatus(err error) int {
	var (
		inputErr      *service.InputError
		transitionErr *service.TransitionError
		credErr       *repository.CredentialNotFoundError
	)
	switch {
	case errors.As(err, &inputErr):
		return fiber.StatusBadRequest
	case errors.Is(err, repository.ErrRecordNotFound), errors.As(err, &credErr):
		return fiber.StatusNotFound
	case errors.As(err, &transitionErr),
		errors.Is(err, service.ErrNotPosted),
		errors.Is(err, service.ErrAlreadyPosted),
		errors.Is(err, service.ErrRunInProgress):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
