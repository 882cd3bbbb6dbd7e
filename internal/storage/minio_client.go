package storage

import (
	"bytes"
	"context"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"classifier-service/internal/config"
)

// NewMinioClient initializes a MinIO client and ensures the archive bucket
// exists.
func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}
	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, errors.Wrap(err, "check bucket")
	}
	if !exists {
		if err := minioClient.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: ""}); err != nil {
			return nil, errors.Wrap(err, "create bucket")
		}
		log.Printf("Created bucket %s\n", cfg.MinioBucket)
	}
	return minioClient, nil
}

// UploadArchive stores original upload bytes keyed by their content
// fingerprint. Keys are content-addressed, so re-storing the same
// fingerprint overwrites an identical object and stays idempotent.
type UploadArchive struct {
	client *minio.Client
	bucket string
}

func NewUploadArchive(client *minio.Client, bucket string) *UploadArchive {
	return &UploadArchive{client: client, bucket: bucket}
}

// Store uploads data under "<fingerprint>.<format>" and returns the object
// key.
func (a *UploadArchive) Store(ctx context.Context, fingerprint, format string, data []byte) (string, error) {
	key := fingerprint + "." + extensionForFormat(format)
	reader := newCountingReader(bytes.NewReader(data))
	start := time.Now()
	_, err := a.client.PutObject(ctx, a.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentTypeForFormat(format),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to upload to MinIO")
	}
	log.Printf("ARCHIVE STORE: %s (%d bytes, %dms)", key, reader.Bytes(), time.Since(start).Milliseconds())
	return key, nil
}

// extensionForFormat maps the validator's detected format to a file
// extension. The format name is already the canonical registry name, jpeg
// included.
func extensionForFormat(format string) string {
	if format == "" {
		return "bin"
	}
	return format
}

func contentTypeForFormat(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// countingReader tracks how many bytes the uploader consumed, for the
// transfer log line.
type countingReader struct {
	r     io.Reader
	count atomic.Int64
}

func newCountingReader(r io.Reader) *countingReader {
	return &countingReader{r: r}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count.Add(int64(n))
	return n, err
}

func (c *countingReader) Bytes() int64 {
	return c.count.Load()
}
