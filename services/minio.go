package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

type MinIOService struct {
	appContext.DefaultService
	client     *minio.Client
	bucketName string
	endpoint   string
	accessKey  string
	secretKey  string
	useSSL     bool
	publicURL  string
}

const MINIO_SVC = "minio_svc"

func (svc MinIOService) Id() string {
	return MINIO_SVC
}

func (svc *MinIOService) Configure(ctx *appContext.Context) error {
	svc.endpoint = os.Getenv("MINIO_ENDPOINT")
	if svc.endpoint == "" {
		svc.endpoint = "localhost:9000"
	}

	svc.accessKey = os.Getenv("MINIO_ACCESS_KEY")
	if svc.accessKey == "" {
		svc.accessKey = "admin"
	}

	svc.secretKey = os.Getenv("MINIO_SECRET_KEY")
	if svc.secretKey == "" {
		svc.secretKey = "password123"
	}

	svc.useSSL = os.Getenv("MINIO_USE_SSL") == "true"

	svc.bucketName = os.Getenv("MINIO_BUCKET_NAME")
	if svc.bucketName == "" {
		svc.bucketName = "cleo-lessons"
	}

	svc.publicURL = os.Getenv("MINIO_PUBLIC_URL")

	return svc.DefaultService.Configure(ctx)
}

func (svc *MinIOService) Start() error {
	client, err := minio.New(svc.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(svc.accessKey, svc.secretKey, ""),
		Secure: svc.useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %v", err)
	}

	svc.client = client

	if err := svc.ensureBucket(); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %v", err)
	}

	log.Printf("MinIO service started successfully with endpoint: %s", svc.endpoint)
	return nil
}

func (svc *MinIOService) ensureBucket() error {
	ctx := context.Background()

	exists, err := svc.client.BucketExists(ctx, svc.bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return svc.client.MakeBucket(ctx, svc.bucketName, minio.MakeBucketOptions{})
}

// Upload stores an object and returns its resolvable URL.
func (svc *MinIOService) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := svc.client.PutObject(ctx, svc.bucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}

	return svc.ObjectURL(ctx, objectKey)
}

// ObjectURL returns the public URL when one is configured, otherwise a
// presigned GET valid for 24 hours.
func (svc *MinIOService) ObjectURL(ctx context.Context, objectKey string) (string, error) {
	if svc.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", svc.publicURL, svc.bucketName, objectKey), nil
	}

	presigned, err := svc.client.PresignedGetObject(ctx, svc.bucketName, objectKey, 24*time.Hour, nil)
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

func (svc *MinIOService) Remove(ctx context.Context, objectKey string) error {
	return svc.client.RemoveObject(ctx, svc.bucketName, objectKey, minio.RemoveObjectOptions{})
}
