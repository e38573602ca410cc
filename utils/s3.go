// utils/s3.go
package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var s3Client *s3.Client
var presignClient *s3.PresignClient
var photoBucket string

// InitS3 configures the S3 client for photo storage. Works against AWS or
// any S3-compatible endpoint (MinIO in local dev) via S3_ENDPOINT.
func InitS3() error {
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	endpoint := os.Getenv("S3_ENDPOINT")
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "auto"
	}
	photoBucket = os.Getenv("S3_BUCKET")
	if photoBucket == "" {
		photoBucket = "street-tree-photos"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)),
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return fmt.Errorf("failed to load S3 config: %w", err)
	}

	s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // MinIO needs path-style addressing
		}
	})
	presignClient = s3.NewPresignClient(s3Client)
	return nil
}

// PresignedUpload is what the mobile client needs to PUT a photo directly
// to storage.
type PresignedUpload struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

// CreatePresignedUploadURL mints a one-hour presigned PUT for one photo.
// The storage key namespaces objects by user and a fresh uuid so clients
// can never collide or overwrite each other.
func CreatePresignedUploadURL(ctx context.Context, userID, contentType, photoType string) (*PresignedUpload, error) {
	ext := "jpg"
	if contentType == "image/heic" {
		ext = "heic"
	}
	storageKey := fmt.Sprintf("observations/%s/%s/%s.%s", userID, uuid.NewString(), photoType, ext)

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(photoBucket),
		Key:         aws.String(storageKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(1*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedUpload{UploadURL: req.URL, StorageKey: storageKey}, nil
}

// PublicURL returns the public URL for a stored object key, or "" when
// S3_PUBLIC_URL is not configured.
func PublicURL(storageKey string) string {
	base := os.Getenv("S3_PUBLIC_URL")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", base, storageKey)
}
