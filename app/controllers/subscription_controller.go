package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleListPlans returns the tier catalog.
func (ctl *Controller) HandleListPlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": ctl.billing.Catalog().All()})
}

// HandleGetSubscription returns the membership summary of a user.
func (ctl *Controller) HandleGetSubscription(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	info, err := ctl.billing.Expiry().MembershipInfo(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(info)
}

// HandleConsumeSearch consumes one search from the user's rolling quota.
func (ctl *Controller) HandleConsumeSearch(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	allowed, err := ctl.searches.CheckAndConsume(c.UserContext(), userID, ctl.quotaCfg.SearchLimit, ctl.quotaCfg.SearchWindow)
	if err != nil {
		log.Errorf("[Quota] Search quota check for user %s failed: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Quota check failed")
	}

	status := fiber.StatusOK
	if !allowed {
		status = fiber.StatusTooManyRequests
	}
	return c.Status(status).JSON(fiber.Map{"allowed": allowed, "limit": ctl.quotaCfg.SearchLimit})
}

// HandleGetSearchQuota reports the user's standing without consuming.
func (ctl *Controller) HandleGetSearchQuota(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	usage, err := ctl.searches.Usage(c.UserContext(), userID, ctl.quotaCfg.SearchLimit, ctl.quotaCfg.SearchWindow)
	if err != nil {
		log.Errorf("[Quota] Search quota lookup for user %s failed: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Quota lookup failed")
	}
	return c.JSON(usage)
}
