package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crm_dashboard_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// StorageProvider defines the blob operations used for client attachments
type StorageProvider interface {
	UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error)
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error) // Returns reader, content-type, error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	// GetSignedURL returns a temporary direct link to the object, or "" when
	// the provider cannot serve objects itself and callers must stream them
	GetSignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
}

// StorageResult contains information about the stored file
type StorageResult struct {
	Key      string // Storage key/path
	FileName string
	FileSize int64
	MimeType string
	URL      string // Public or signed URL
}

// NewStorageProvider picks R2 when it is configured and reachable, local disk otherwise
func NewStorageProvider(cfg *config.Config) StorageProvider {
	if cfg.R2AccountID != "" && cfg.R2AccessKeyID != "" && cfg.R2SecretAccessKey != "" && cfg.R2BucketName != "" {
		r2, err := NewR2Storage(cfg)
		if err != nil {
			log.Printf("[WARNING] Failed to initialize R2 storage: %v. Falling back to local storage.", err)
			return NewLocalStorage(cfg.UploadDir)
		}

		// Test R2 connection (HeadBucket)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err = r2.client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: &cfg.R2BucketName,
		})
		if err != nil {
			log.Printf("[WARNING] R2 bucket connection test failed: %v. Falling back to local storage.", err)
			return NewLocalStorage(cfg.UploadDir)
		}

		log.Printf("Storage connection established (Cloudflare R2 - bucket: %s)", cfg.R2BucketName)
		return r2
	}

	log.Printf("Storage connection established (Local filesystem - path: %s)", cfg.UploadDir)
	return NewLocalStorage(cfg.UploadDir)
}

// R2Storage implements StorageProvider for Cloudflare R2
type R2Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

// NewR2Storage creates a new R2 storage provider
func NewR2Storage(cfg *config.Config) (*R2Storage, error) {
	// R2 endpoint format: https://<account_id>.r2.cloudflarestorage.com
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	creds := credentials.NewStaticCredentialsProvider(
		cfg.R2AccessKeyID,
		cfg.R2SecretAccessKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("auto"), // R2 uses "auto" region
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.R2BucketName,
		publicURL: cfg.R2PublicURL,
	}, nil
}

// UploadReader uploads content from a reader to R2
func (r *R2Storage) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload to R2: %w", err)
	}

	return &StorageResult{
		Key:      key,
		FileName: filepath.Base(key),
		FileSize: size,
		MimeType: contentType,
		URL:      r.publicObjectURL(key),
	}, nil
}

// Delete removes a file from R2. Deleting a missing key succeeds.
func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// Get retrieves a file from R2 and returns a reader
func (r *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object from R2: %w", err)
	}

	contentType := "application/octet-stream"
	if result.ContentType != nil {
		contentType = *result.ContentType
	}

	return result.Body, contentType, nil
}

// Exists reports whether the key is present in the bucket
func (r *R2Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object in R2: %w", err)
}

// List returns every key under prefix
func (r *R2Storage) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in R2: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// GetSignedURL generates a presigned URL for temporary access
func (r *R2Storage) GetSignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presignedReq, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return presignedReq.URL, nil
}

func (r *R2Storage) publicObjectURL(key string) string {
	if r.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(r.publicURL, "/"), key)
	}
	// No public URL, callers use GetSignedURL
	return ""
}

// LocalStorage implements StorageProvider for local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new local storage provider
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

// resolve maps a key to a path inside baseDir, rejecting traversal
func (l *LocalStorage) resolve(key string) (string, error) {
	fullPath := filepath.Join(l.baseDir, key)

	absBase, err := filepath.Abs(l.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path: path traversal detected")
	}
	return fullPath, nil
}

// UploadReader saves content from a reader to local filesystem
func (l *LocalStorage) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		// Clean up on error
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &StorageResult{
		Key:      key,
		FileName: filepath.Base(key),
		FileSize: written,
		MimeType: contentType,
		URL:      "/" + filepath.ToSlash(fullPath),
	}, nil
}

// Delete removes a file from local filesystem. Deleting a missing file succeeds.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Get retrieves a file from local filesystem and returns a reader
func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	return file, detectContentType(key), nil
}

// Exists reports whether the key is present on disk
func (l *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat file: %w", err)
}

// List returns every key under prefix, using forward slashes
func (l *LocalStorage) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := l.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return keys, nil
}

// GetSignedURL returns "" since local files are only served through the API
func (l *LocalStorage) GetSignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	return "", nil
}

// Office and text types are missing from Go's built-in table and from some
// platforms' mime.types
var attachmentMimeTypes = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func init() {
	for ext, typ := range attachmentMimeTypes {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			log.Printf("[WARNING] Failed to register mime type for %s: %v", ext, err)
		}
	}
}

// detectContentType guesses a MIME type from the file extension, without parameters
func detectContentType(name string) string {
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mediaType, _, err := mime.ParseMediaType(typ); err == nil {
		return mediaType
	}
	return "application/octet-stream"
}

// GenerateAttachmentKey builds a storage key unique per upload:
// {userID}/{unix millis}_{random}_{file name}
func GenerateAttachmentKey(userID string, at time.Time, fileName string) string {
	return fmt.Sprintf("%s/%d_%s_%s", userID, at.UnixMilli(), uuid.New().String()[:8], safeFileName(fileName))
}

// safeFileName strips directories and separators from a client-supplied name
func safeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}
