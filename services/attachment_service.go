package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"crm_dashboard_go/config"
	"crm_dashboard_go/models"

	"gorm.io/gorm"
)

// AttachmentDescriptionMaxLength caps the optional attachment description
const AttachmentDescriptionMaxLength = 500

// UploadInput describes one file to attach to a client
type UploadInput struct {
	ClientID    string
	UserID      string
	FileName    string
	ContentType string
	Size        int64
	Description string
	Body        io.Reader
}

// AttachmentService keeps attachment metadata rows and their blobs in step.
// Uploads write the blob first; deletes remove the blob first.
type AttachmentService struct {
	DB      *gorm.DB
	Storage StorageProvider
	MaxSize int64
	now     func() time.Time
}

func NewAttachmentService(db *gorm.DB, storage StorageProvider, maxSize int64) *AttachmentService {
	if maxSize <= 0 {
		maxSize = int64(config.DefaultMaxUploadMB) * 1024 * 1024
	}
	return &AttachmentService{DB: db, Storage: storage, MaxSize: maxSize, now: time.Now}
}

// WithClock replaces the clock used to build storage paths
func (s *AttachmentService) WithClock(now func() time.Time) *AttachmentService {
	s.now = now
	return s
}

func (s *AttachmentService) validate(in UploadInput) error {
	if in.ClientID == "" {
		return newValidationError("client_id", "client is required")
	}
	if in.UserID == "" {
		return newValidationError("user_id", "acting user is required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return newValidationError("file", "file name is required")
	}
	if in.Body == nil {
		return newValidationError("file", "file is required")
	}
	if in.Size < 0 {
		return newValidationError("file", "invalid file size")
	}
	if in.Size > s.MaxSize {
		return newValidationError("file", fmt.Sprintf("file size exceeds maximum allowed size of %dMB", s.MaxSize/(1024*1024)))
	}
	if len(in.Description) > AttachmentDescriptionMaxLength {
		return newValidationError("description", "description must be at most 500 characters")
	}
	return nil
}

// Upload stores the blob and then its metadata row. When the row cannot be
// written the blob is left behind and logged as an orphan.
func (s *AttachmentService) Upload(ctx context.Context, in UploadInput) (*models.Attachment, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	fileName := safeFileName(in.FileName)
	key := GenerateAttachmentKey(in.UserID, s.now(), fileName)
	contentType := in.ContentType
	if contentType == "" {
		contentType = detectContentType(fileName)
	}

	result, err := s.Storage.UploadReader(ctx, in.Body, key, contentType, in.Size)
	if err != nil {
		return nil, &StorageError{Op: "upload", Path: key, Err: err}
	}

	size := result.FileSize
	if size <= 0 {
		size = in.Size
	}

	attachment := &models.Attachment{
		ClientID: in.ClientID,
		UserID:   in.UserID,
		FileName: fileName,
		FilePath: key,
		FileSize: size,
		FileType: contentType,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		attachment.Description = &desc
	}

	err = s.DB.WithContext(ctx).Create(attachment).Error
	observeOp("attachment", "create", err)
	if err != nil {
		log.Printf("[ORPHAN] Blob %s uploaded but metadata insert failed: %v", key, err)
		AttachmentOrphans.WithLabelValues("blob").Inc()
		return nil, storeErr("save attachment", err)
	}

	return attachment, nil
}

// ListByClient returns a client's attachments, newest first
func (s *AttachmentService) ListByClient(ctx context.Context, clientID string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := s.DB.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&attachments).Error
	observeOp("attachment", "list", err)
	if err != nil {
		return nil, storeErr("fetch attachments", err)
	}
	return attachments, nil
}

func (s *AttachmentService) Get(ctx context.Context, id string) (*models.Attachment, error) {
	var attachment models.Attachment
	err := s.DB.WithContext(ctx).First(&attachment, "id = ?", id).Error
	observeOp("attachment", "get", ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("fetch attachment", err)
	}
	return &attachment, nil
}

// SignedURL returns a temporary direct link to an attachment's blob, or ""
// when the storage provider cannot issue one
func (s *AttachmentService) SignedURL(ctx context.Context, id string, expiration time.Duration) (string, error) {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.Storage.GetSignedURL(ctx, attachment.FilePath, expiration)
	if err != nil {
		return "", &StorageError{Op: "sign", Path: attachment.FilePath, Err: err}
	}
	return url, nil
}

// Open returns the blob of an attachment. The caller must close the reader.
func (s *AttachmentService) Open(ctx context.Context, id string) (io.ReadCloser, *models.Attachment, error) {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	reader, _, err := s.Storage.Get(ctx, attachment.FilePath)
	if err != nil {
		return nil, nil, &StorageError{Op: "download", Path: attachment.FilePath, Err: err}
	}
	return reader, attachment, nil
}

// Download passes the blob to fn and releases it when fn returns, whether or
// not fn fails
func (s *AttachmentService) Download(ctx context.Context, id string, fn func(r io.Reader, a *models.Attachment) error) error {
	reader, attachment, err := s.Open(ctx, id)
	if err != nil {
		return err
	}
	defer reader.Close()

	return fn(reader, attachment)
}

// Delete removes the blob and then the metadata row. A blob failure leaves the
// row in place. Deleting a missing attachment succeeds.
func (s *AttachmentService) Delete(ctx context.Context, id string) error {
	attachment, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.Storage.Delete(ctx, attachment.FilePath); err != nil {
		return &StorageError{Op: "delete", Path: attachment.FilePath, Err: err}
	}

	err = s.DB.WithContext(ctx).Delete(&models.Attachment{}, "id = ?", id).Error
	observeOp("attachment", "delete", err)
	if err != nil {
		log.Printf("[ORPHAN] Blob %s deleted but metadata row %s remains: %v", attachment.FilePath, id, err)
		AttachmentOrphans.WithLabelValues("metadata").Inc()
		return storeErr("delete attachment", err)
	}
	return nil
}
