// Package media stores uploaded videos and profile photos.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"clipfeed/internal/config"
	domain "clipfeed/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// photoQuality is the JPEG quality profile photos are re-encoded at.
const photoQuality = 30

// Upload is a validated file held in memory.
type Upload struct {
	Data        []byte
	ContentType string
}

// UploadKind selects the size and type rules for ReadUpload.
type UploadKind int

const (
	UploadVideo UploadKind = iota
	UploadPhoto
)

// Store keeps uploaded files and hands back an opaque key.
type Store interface {
	StoreVideo(ctx context.Context, upload *Upload) (key string, err error)
	// StorePhoto normalizes the image to a square JPEG before storing it.
	StorePhoto(ctx context.Context, upload *Upload) (key string, err error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// R2Store stores media in Cloudflare R2 through the S3 API.
type R2Store struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewR2Store constructs an S3-compatible client for Cloudflare R2.
func NewR2Store(ctx context.Context, cfg *config.Config) (*R2Store, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" || cfg.R2PublicURL == "" {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Store{
		s3Client:  s3Client,
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

func (s *R2Store) StoreVideo(ctx context.Context, upload *Upload) (string, error) {
	key := fmt.Sprintf("%s/%s%s", domain.VideoFolder, uuid.NewString(), domain.VideoExt)
	if err := s.putObject(ctx, key, upload.Data, domain.ContentTypeMP4, domain.MediaCacheControl); err != nil {
		return "", err
	}
	return key, nil
}

func (s *R2Store) StorePhoto(ctx context.Context, upload *Upload) (string, error) {
	jpegBytes, err := ResizeToJPEG(upload.Data, domain.PhotoWidth, domain.PhotoHeight, photoQuality)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s%s", domain.PhotoFolder, uuid.NewString(), domain.PhotoExt)
	if err := s.putObject(ctx, key, jpegBytes, domain.ContentTypeJPEG, domain.MediaCacheControl); err != nil {
		return "", err
	}
	return key, nil
}

// URL maps a stored key to its public address.
func (s *R2Store) URL(key string) string {
	if key == "" || key == domain.NoProfilePhoto {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.publicURL, key)
}

// ReadUpload loads a multipart file into memory with size and type checks.
func ReadUpload(file multipart.File, header *multipart.FileHeader, kind UploadKind) (*Upload, error) {
	maxSize := int64(domain.MaxVideoSizeBytes)
	if kind == UploadPhoto {
		maxSize = domain.MaxPhotoSizeBytes
	}
	if header.Size > maxSize {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, domain.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	switch kind {
	case UploadPhoto:
		if !domain.IsAllowedPhotoType(contentType) {
			return nil, domain.ErrInvalidPhotoType
		}
	default:
		if !domain.IsAllowedVideoType(contentType) {
			return nil, domain.ErrInvalidVideoType
		}
	}

	return &Upload{Data: data, ContentType: contentType}, nil
}

// ResizeToJPEG centers/crops to target size and encodes as JPEG.
func ResizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

// putObject uploads bytes to R2 with metadata.
func (s *R2Store) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

// Delete removes an object by key. The no-photo sentinel is never deleted.
func (s *R2Store) Delete(ctx context.Context, key string) error {
	if key == "" || key == domain.NoProfilePhoto {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}
