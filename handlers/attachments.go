package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"crm_dashboard_go/middleware"
	"crm_dashboard_go/models"
	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
)

const signedURLExpiry = 15 * time.Minute

func (h *Handler) ListAttachments(c echo.Context) error {
	attachments, err := h.attachmentService().ListByClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch attachments")
	}
	return respond(c, http.StatusOK, attachments)
}

// UploadAttachment stores a multipart file ("file") against a client
func (h *Handler) UploadAttachment(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "No file uploaded")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Failed to read file")
	}
	defer file.Close()

	attachment, err := h.attachmentService().Upload(c.Request().Context(), services.UploadInput{
		ClientID:    c.Param("id"),
		UserID:      user.ID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Description: c.FormValue("description"),
		Body:        file,
	})
	if err != nil {
		return respondError(c, err, "Failed to upload file")
	}
	return respond(c, http.StatusCreated, attachment)
}

// DownloadAttachment redirects to a signed storage URL when the provider
// issues one, and streams the content otherwise
func (h *Handler) DownloadAttachment(c echo.Context) error {
	svc := h.attachmentService()

	url, err := svc.SignedURL(c.Request().Context(), c.Param("id"), signedURLExpiry)
	if err != nil {
		return respondError(c, err, "Failed to get download URL")
	}
	if url != "" {
		return c.Redirect(http.StatusTemporaryRedirect, url)
	}

	err = svc.Download(c.Request().Context(), c.Param("id"), func(r io.Reader, a *models.Attachment) error {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", a.FileName))
		contentType := a.FileType
		if contentType == "" {
			contentType = echo.MIMEOctetStream
		}
		return c.Stream(http.StatusOK, contentType, r)
	})
	if err != nil {
		if c.Response().Committed {
			return err
		}
		return respondError(c, err, "Failed to download file")
	}
	return nil
}

func (h *Handler) DeleteAttachment(c echo.Context) error {
	if err := h.attachmentService().Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err, "Failed to delete file")
	}
	return respond(c, http.StatusOK, nil)
}
