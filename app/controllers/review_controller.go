package controllers

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
	"github.com/ManuelReschke/PrimePass/internal/pkg/proofstore"
)

const sniffLen = 3072

type reviewForm struct {
	UserID string `validate:"required,max=64"`
	PlanID string `validate:"required,max=50"`
}

// HandleSubmitReview stores an uploaded proof of payment and queues it for
// an administrator decision.
func (ctl *Controller) HandleSubmitReview(c *fiber.Ctx) error {
	form := reviewForm{
		UserID: strings.TrimSpace(c.FormValue("userId")),
		PlanID: strings.TrimSpace(c.FormValue("planId")),
	}
	if err := ctl.validate.Struct(form); err != nil {
		return validationError(c, err)
	}

	tier, err := ctl.billing.Catalog().Resolve(form.PlanID)
	if err != nil {
		return errorResponse(c, err)
	}
	if tier.AutoApprove {
		return errorResponse(c, billing.ErrAutoApproveTier)
	}

	fileHeader, err := c.FormFile("proof")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "proof file is required")
	}
	if fileHeader.Size > proofstore.MaxProofSize {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", proofstore.ErrTooLarge.Error())
	}

	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "proof file could not be read")
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "proof file could not be read")
	}
	head = head[:n]

	contentType, err := proofstore.Validate(fileHeader.Filename, head)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	ref, err := ctl.proofs.Put(c.UserContext(), form.UserID, contentType, io.MultiReader(bytes.NewReader(head), file), fileHeader.Size)
	if err != nil {
		if errors.Is(err, proofstore.ErrTooLarge) {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
		}
		log.Errorf("[Reviews] Failed to store proof for user %s: %v", form.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "store_write_failure", "Proof could not be stored")
	}

	req, err := ctl.billing.Reviews().SubmitProof(c.UserContext(), form.UserID, tier.PlanID, billing.StoredProof{Ref: ref, ContentType: contentType})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"requestId":   req.ID,
		"status":      req.Status,
		"displayName": tier.DisplayName,
	})
}
