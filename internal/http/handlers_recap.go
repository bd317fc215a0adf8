package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"reverie/internal/recap"
)

func recapFromCtx(c *fiber.Ctx) *recap.Orchestrator {
	return c.Locals("recap").(*recap.Orchestrator)
}

// reserveRecapHandler runs the recap reservation saga synchronously. A
// saga failure has already been fully compensated by the time it surfaces
// here, so a 500 means no partial state was left behind.
func reserveRecapHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}

	var req ReserveRecapRequest
	if err := c.BodyParser(&req); err != nil || req.VideoID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "videoId is required",
		})
	}
	if req.ScheduledAt.IsZero() {
		req.ScheduledAt = time.Now().UTC()
	}

	reservation, err := recapFromCtx(c).Reserve(c.Context(), memberID, req.VideoID, req.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "RESERVATION_FAILED",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(ReserveRecapResponse{
		Success:     true,
		Reservation: reservation,
	})
}

func recapResultHandler(c *fiber.Ctx) error {
	if _, ok := memberFromCtx(c); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}
	reservationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid reservation id",
		})
	}

	result, err := recapFromCtx(c).Result(c.Context(), reservationID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if result == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "recap result not available",
		})
	}

	return c.JSON(RecapResultResponse{Success: true, Result: result})
}

func recapAudioHandler(c *fiber.Ctx) error {
	if _, ok := memberFromCtx(c); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}
	reservationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid reservation id",
		})
	}

	audio, err := recapFromCtx(c).Audio(c.Context(), reservationID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if audio == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "recap audio not available",
		})
	}

	return c.JSON(RecapAudioResponse{Success: true, Audio: audio})
}
