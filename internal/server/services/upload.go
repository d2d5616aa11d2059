package services

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	sc "github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// allowedExtensions lists the accepted file extensions per upload kind.
var allowedExtensions = map[models.UploadKind][]string{
	models.UploadKindImage: {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg"},
	models.UploadKindVideo: {".mp4", ".avi", ".mov", ".mkv", ".wmv", ".flv", ".webm"},
	models.UploadKindAudio: {".mp3", ".wav", ".ogg", ".aac", ".flac", ".m4a"},
}

type UploadRequest struct {
	Name        string
	Kind        string
	Size        int64
	ContentType string
}

// UploadTicket is what the client needs to PUT the bytes to object storage.
type UploadTicket struct {
	Upload    *models.Upload
	UploadURL string
}

// UploadService validates upload metadata and hands out presigned URLs; the
// file content goes straight from the client to object storage.
type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	log         logging.Logger
}

func NewUploadService(db *sql.DB, m repomanager.RepositoryManager, config *sc.Config, log logging.Logger) *UploadService {
	return &UploadService{
		db:          db,
		repomanager: m,
		config:      config,
		log:         log.With("module", "uploads"),
	}
}

// GetRandomStorageKey builds a unique object key that keeps the extension.
func GetRandomStorageKey(kind models.UploadKind, ext string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("uploads/%s/%d/%02d/%02d/%s%s", kind, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *UploadService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// validateUpload enforces the size limit (413) and the per-kind extension
// list (415). Missing metadata is a 400.
func (s *UploadService) validateUpload(req UploadRequest) (models.UploadKind, string, error) {
	missing := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		missing["name"] = "missing"
	}
	if req.Kind == "" {
		missing["kind"] = "missing"
	}
	if req.Size <= 0 {
		missing["size"] = "missing"
	}
	if err := fieldsOrNil(common.ErrInvalidRequest, missing); err != nil {
		return "", "", err
	}

	kind := models.UploadKind(strings.ToLower(req.Kind))
	exts, ok := allowedExtensions[kind]
	if !ok {
		return "", "", &FieldsError{Err: common.ErrInvalidRequest, Fields: map[string]string{"kind": "invalid"}}
	}

	if req.Size > s.config.MaxUploadSize {
		return "", "", fmt.Errorf("%w: limit is %d bytes", common.ErrPayloadTooLarge, s.config.MaxUploadSize)
	}

	ext := strings.ToLower(path.Ext(req.Name))
	for _, e := range exts {
		if e == ext {
			return kind, ext, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q is not a valid %s extension", common.ErrUnsupportedMediaType, ext, kind)
}

// Create records a pending upload owned by ownerID and returns a presigned
// PUT URL for it.
func (s *UploadService) Create(ctx context.Context, ownerID string, req UploadRequest) (*UploadTicket, error) {
	kind, ext, err := s.validateUpload(req)
	if err != nil {
		return nil, err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey(kind, ext)

	in := &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		ContentLength: aws.Int64(req.Size),
	}
	if req.ContentType != "" {
		in.ContentType = aws.String(req.ContentType)
	}

	presigned, err := presignPutObject(presignClient, ctx, in, s3.WithPresignExpires(s.config.UploadURLExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	upload, err := s.repomanager.Uploads(s.db).Create(ctx, &models.Upload{
		OwnerID:      ownerID,
		OriginalName: path.Base(req.Name),
		Kind:         kind,
		Size:         req.Size,
		ContentType:  req.ContentType,
		StorageKey:   key,
		Status:       models.UploadStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}

	s.log.Info(ctx, "upload created", "upload_id", upload.ID, "owner_id", ownerID, "kind", kind, "size", req.Size)
	return &UploadTicket{Upload: upload, UploadURL: presigned.URL}, nil
}

// Complete marks the caller's upload as stored.
func (s *UploadService) Complete(ctx context.Context, ownerID, id string) error {
	return s.repomanager.Uploads(s.db).MarkUploaded(ctx, id, ownerID)
}

// DownloadURL returns a presigned GET URL for the upload.
func (s *UploadService) DownloadURL(ctx context.Context, id string) (string, error) {
	upload, err := s.repomanager.Uploads(s.db).GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	presigned, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &upload.StorageKey,
	}, s3.WithPresignExpires(s.config.UploadURLExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}

	return presigned.URL, nil
}
