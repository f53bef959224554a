package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
	"github.com/ManuelReschke/PrimePass/internal/pkg/proofstore"
	"github.com/ManuelReschke/PrimePass/internal/pkg/quota"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Controller serves the payment, review, membership and admin endpoints.
type Controller struct {
	billing  *billing.Service
	proofs   proofstore.Store
	searches *quota.Tracker
	quotaCfg quota.Config
	validate *validator.Validate
}

// NewController wires the HTTP handlers to their services.
func NewController(svc *billing.Service, proofs proofstore.Store, searches *quota.Tracker, quotaCfg quota.Config) *Controller {
	return &Controller{
		billing:  svc,
		proofs:   proofs,
		searches: searches,
		quotaCfg: quotaCfg,
		validate: validator.New(),
	}
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// errorResponse maps billing errors to HTTP answers.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, billing.ErrUserNotFound),
		errors.Is(err, billing.ErrReviewNotFound),
		errors.Is(err, billing.ErrFailureNotFound),
		errors.Is(err, proofstore.ErrNotFound):
		status = fiber.StatusNotFound
		message = err.Error()
	case errors.Is(err, billing.ErrUnknownPlan),
		errors.Is(err, billing.ErrInvalidOutcome):
		status = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, billing.ErrDuplicateSubmission),
		errors.Is(err, billing.ErrAlreadyDecided):
		status = fiber.StatusConflict
		message = err.Error()
	case errors.Is(err, billing.ErrAutoApproveTier):
		status = fiber.StatusUnprocessableEntity
		message = err.Error()
	}
	code := billing.Kind(err)
	if errors.Is(err, proofstore.ErrNotFound) {
		code = "not_found"
	}
	return jsonError(c, status, code, message)
}

func validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" "+fe.Tag())
		}
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", strings.Join(fields, ", "))
	}
	return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
}

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
