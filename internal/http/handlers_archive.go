package http

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"reverie/internal/archive"
	"reverie/internal/model"
)

func archiveFromCtx(c *fiber.Ctx) *archive.Service {
	return c.Locals("archive").(*archive.Service)
}

func parseIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// uploadURLHandler creates a pending video and hands back a presigned PUT
// URL so the client uploads the bytes straight to the bucket.
func uploadURLHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}

	var req UploadURLRequest
	if err := c.BodyParser(&req); err != nil || req.StoryboardID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "storyboardId is required",
		})
	}

	upload, err := archiveFromCtx(c).RequestUploadURL(c.Context(), req.StoryboardID, memberID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(UploadURLResponse{
		Success:   true,
		VideoID:   upload.VideoID,
		UploadURL: upload.UploadURL,
		ExpiresAt: upload.ExpiresAt,
	})
}

// confirmUploadHandler finalizes a pending video after the client finished
// its direct upload.
func confirmUploadHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}
	videoID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid video id",
		})
	}

	confirmed, err := archiveFromCtx(c).ConfirmUpload(c.Context(), videoID, memberID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if confirmed == uuid.Nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Success: false,
			Code:    "UPLOAD_NOT_CONFIRMED",
			Error:   "video is missing, not yours, not pending, or the object was never uploaded",
		})
	}

	return c.JSON(ConfirmUploadResponse{Success: true, VideoID: confirmed})
}

func listVideosHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}

	page := c.QueryInt("page", 0)
	if page < 0 {
		page = 0
	}
	pageSize := c.QueryInt("pageSize", 20)
	if pageSize > 100 {
		pageSize = 100
	}

	videos, err := archiveFromCtx(c).ListMemberVideos(c.Context(), memberID, page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if videos == nil {
		videos = []model.Video{}
	}

	return c.JSON(VideoListResponse{Success: true, Videos: videos, Page: page})
}

func videoDetailHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}
	videoID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid video id",
		})
	}

	video, err := archiveFromCtx(c).GetVideo(c.Context(), videoID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if video == nil || video.MemberID != memberID {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "video not found",
		})
	}

	return c.JSON(VideoResponse{Success: true, Video: video})
}

func updateTitleHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}
	videoID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid video id",
		})
	}

	var req UpdateTitleRequest
	if err := c.BodyParser(&req); err != nil || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "title is required",
		})
	}

	svc := archiveFromCtx(c)
	if notFound, errResp := requireOwnedVideo(c, svc, videoID, memberID); notFound {
		return errResp
	}

	updated, err := svc.UpdateVideoTitle(c.Context(), videoID, req.Title)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if !updated {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "video not found",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

func updateThumbnailHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}
	videoID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid video id",
		})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "thumbnail body is required",
		})
	}
	contentType := c.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	svc := archiveFromCtx(c)
	if notFound, errResp := requireOwnedVideo(c, svc, videoID, memberID); notFound {
		return errResp
	}

	updated, err := svc.UpdateVideoThumbnail(c.Context(), videoID, bytes.NewReader(body), int64(len(body)), contentType)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if !updated {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "video not found",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

func deleteVideoHandler(c *fiber.Ctx) error {
	memberID, ok := memberFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Member context is not available for this request",
		})
	}
	videoID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid video id",
		})
	}

	svc := archiveFromCtx(c)
	if notFound, errResp := requireOwnedVideo(c, svc, videoID, memberID); notFound {
		return errResp
	}

	deleted, err := svc.DeleteVideo(c.Context(), videoID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "video not found",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// requireOwnedVideo rejects requests against videos that do not exist or
// belong to another member. Ownership failures are reported as NOT_FOUND so
// the API does not leak which video ids exist.
func requireOwnedVideo(c *fiber.Ctx, svc *archive.Service, videoID, memberID uuid.UUID) (bool, error) {
	video, err := svc.GetVideo(c.Context(), videoID)
	if err != nil {
		return true, c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	if video == nil || video.MemberID != memberID {
		return true, c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "video not found",
		})
	}
	return false, nil
}
