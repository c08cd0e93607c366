package handlers

import (
	"fmt"
	"io"

	"printshop/internal/middleware"
	"printshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UploadFormField is the multipart field carrying the boarding-pass image.
const UploadFormField = "boardingPass"

// UploadHandler accepts and serves boarding-pass images.
type UploadHandler struct {
	service     *services.UploadService
	authService *services.AuthService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(service *services.UploadService, authService *services.AuthService) *UploadHandler {
	return &UploadHandler{service: service, authService: authService}
}

// RegisterRoutes registers the upload routes with the Fiber app.
func (h *UploadHandler) RegisterRoutes(router fiber.Router) {
	uploadRoutes := router.Group("/upload")
	uploadRoutes.Post("/", middleware.OptionalAuth(h.authService), h.HandleUpload)
	uploadRoutes.Get("/:id", h.HandleGetFile)
	uploadRoutes.Get("/:id/content", h.HandleGetContent)
	uploadRoutes.Delete("/:id", middleware.AuthRequired(h.authService), h.HandleDelete)
}

// HandleUpload stores an uploaded image. Guests may upload too.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	header, err := c.FormFile(UploadFormField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": fmt.Sprintf("No file uploaded in field %q", UploadFormField),
			"error":   err.Error(),
		})
	}
	f, err := header.Open()
	if err != nil {
		return respondError(c, "Could not read upload", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return respondError(c, "Could not read upload", err)
	}

	ownerID := ""
	if actor := currentActor(c); actor != nil {
		ownerID = actor.UserID
	}
	file, err := h.service.Store(c.UserContext(), ownerID, header.Filename, data)
	if err != nil {
		return respondError(c, "Upload failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "File uploaded successfully",
		"file":    file,
		"fileUrl": "/api/v1/upload/" + file.ID + "/content",
	})
}

// HandleGetFile returns the record of an upload.
func (h *UploadHandler) HandleGetFile(c *fiber.Ctx) error {
	file, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve file", err)
	}
	return c.JSON(file)
}

// HandleGetContent streams the uploaded image.
func (h *UploadHandler) HandleGetContent(c *fiber.Ctx) error {
	file, data, err := h.service.Open(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve file", err)
	}
	c.Set(fiber.HeaderContentType, file.MimeType)
	return c.Send(data)
}

// HandleDelete soft-deletes an upload.
func (h *UploadHandler) HandleDelete(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)
	if err := h.service.Delete(c.UserContext(), c.Params("id"), actor); err != nil {
		return respondError(c, "Could not delete file", err)
	}
	return c.JSON(fiber.Map{"message": "File deleted successfully"})
}
