package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

// StorageHandler exposes the teacher's file space.
type StorageHandler struct {
	storage *service.StorageService
}

// NewStorageHandler constructs StorageHandler.
func NewStorageHandler(storage *service.StorageService) *StorageHandler {
	return &StorageHandler{storage: storage}
}

// List godoc
// @Summary List uploaded files
// @Tags Storage
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /files [get]
func (h *StorageHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	files, err := h.storage.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Upload godoc
// @Summary Upload a file
// @Tags Storage
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 201 {object} response.Envelope
// @Router /files [post]
func (h *StorageHandler) Upload(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing file field"))
		return
	}
	if err := h.storage.Initialize(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.storage.Upload(c.Request.Context(), claims.UserID, header)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// Download godoc
// @Summary Download a file
// @Tags Storage
// @Produce octet-stream
// @Param key query string true "File key"
// @Success 200 {file} binary
// @Router /files/download [get]
func (h *StorageHandler) Download(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	key := c.Query("key")
	if key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing key parameter"))
		return
	}
	reader, name, err := h.storage.Download(c.Request.Context(), claims.UserID, key)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		_ = c.Error(err)
	}
}

// Delete godoc
// @Summary Delete a file
// @Tags Storage
// @Param key query string true "File key"
// @Success 204 "No Content"
// @Router /files [delete]
func (h *StorageHandler) Delete(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	key := c.Query("key")
	if key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing key parameter"))
		return
	}
	if err := h.storage.Delete(c.Request.Context(), claims.UserID, key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
