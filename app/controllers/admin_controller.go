package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PrimePass/app/models"
	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
	"github.com/ManuelReschke/PrimePass/internal/pkg/middleware"
)

type decisionRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=approved approve rejected reject"`
	Note    string `json:"note" validate:"max=2000"`
}

// HandleAdminListReviews lists review requests, pending ones by default.
func (ctl *Controller) HandleAdminListReviews(c *fiber.Ctx) error {
	status := strings.ToLower(strings.TrimSpace(c.Query("status", models.ReviewStatusPending)))
	if status == "all" {
		status = ""
	}
	reviews, err := ctl.billing.Reviews().List(c.UserContext(), status, queryLimit(c))
	if err != nil {
		log.Errorf("[Admin] Failed to list reviews: %v", err)
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"reviews": reviews, "count": len(reviews)})
}

// HandleAdminGetReview returns one review request.
func (ctl *Controller) HandleAdminGetReview(c *fiber.Ctx) error {
	req, err := ctl.billing.Reviews().Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(req)
}

// HandleAdminGetProof streams the uploaded proof of a review.
func (ctl *Controller) HandleAdminGetProof(c *fiber.Ctx) error {
	req, err := ctl.billing.Reviews().Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if ctl.proofs == nil || strings.HasPrefix(req.ProofArtifactRef, "payment:") {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No uploaded proof for this review: "+req.ProofArtifactRef)
	}

	rc, err := ctl.proofs.Open(c.UserContext(), req.ProofArtifactRef)
	if err != nil {
		return errorResponse(c, err)
	}
	if req.ProofContentType != "" {
		c.Set(fiber.HeaderContentType, req.ProofContentType)
	}
	c.Set(fiber.HeaderContentDisposition, "inline")
	return c.SendStream(rc)
}

// HandleAdminDecideReview approves or rejects a pending review.
func (ctl *Controller) HandleAdminDecideReview(c *fiber.Ctx) error {
	var body decisionRequest
	if err := c.BodyParser(&body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Invalid request body")
	}
	body.Outcome = strings.ToLower(strings.TrimSpace(body.Outcome))
	if err := ctl.validate.Struct(body); err != nil {
		return validationError(c, err)
	}
	outcome, err := billing.ParseOutcome(body.Outcome)
	if err != nil {
		return errorResponse(c, err)
	}

	decision, err := ctl.billing.Reviews().Decide(c.UserContext(), c.Params("id"), outcome, middleware.AdminName(c), body.Note)
	if err != nil {
		if decision != nil {
			// Decision is recorded but the tier could not be applied.
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":    billing.Kind(err),
				"message":  "Review approved but activation failed; a failed activation was recorded",
				"decision": decision,
			})
		}
		return errorResponse(c, err)
	}
	return c.JSON(decision)
}

// HandleAdminListFailedActivations lists unresolved failures, or all with
// include_resolved=true.
func (ctl *Controller) HandleAdminListFailedActivations(c *fiber.Ctx) error {
	includeResolved := c.QueryBool("include_resolved", false)
	failures, err := ctl.billing.Failures().List(c.UserContext(), includeResolved, queryLimit(c))
	if err != nil {
		log.Errorf("[Admin] Failed to list failed activations: %v", err)
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"failed_activations": failures, "count": len(failures)})
}

// HandleAdminResolveFailedActivation marks a failure as handled.
func (ctl *Controller) HandleAdminResolveFailedActivation(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Invalid failed activation id")
	}
	if err := ctl.billing.Failures().Resolve(c.UserContext(), uint(id), middleware.AdminName(c)); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "resolved": true})
}

// HandleAdminExpiringMemberships lists memberships ending within ?days
// (default 7).
func (ctl *Controller) HandleAdminExpiringMemberships(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 || days > 365 {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "days must be between 1 and 365")
	}
	members, err := ctl.billing.Expiry().Expiring(c.UserContext(), time.Duration(days)*24*time.Hour)
	if err != nil {
		log.Errorf("[Admin] Failed to list expiring memberships: %v", err)
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"memberships": members, "count": len(members)})
}

// HandleAdminExpireMemberships runs one expiry sweep immediately.
func (ctl *Controller) HandleAdminExpireMemberships(c *fiber.Ctx) error {
	report, err := ctl.billing.Expiry().ExpireMemberships(c.UserContext())
	if err != nil {
		log.Errorf("[Admin] Manual expiry sweep failed: %v", err)
		return errorResponse(c, err)
	}
	return c.JSON(report)
}
