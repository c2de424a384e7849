package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/clipposter/internal/repository"
)

type AccountHandler struct {
	r repository.AccountRepository
}

func NewAccountHandler(r repository.AccountRepository) *AccountHandler {
	return &AccountHandler{r: r}
}

// ListAccounts never exposes tokens; the model keeps them out of JSON.
func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.r.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}
	return c.Status(fiber.StatusOK).JSON(accounts)
}
