//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/sqlscribe/sqlscribe/internal/storage"
)

func TestStoreReadsAgainstMinIO(t *testing.T) {
	endpoint := envOr("SQLSCRIBE_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("SQLSCRIBE_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:        endpoint,
		Region:          envOr("SQLSCRIBE_TEST_S3_REGION", "us-east-1"),
		Bucket:          envOr("SQLSCRIBE_TEST_S3_BUCKET", "sqlscribe-it"),
		AccessKeyID:     envOr("SQLSCRIBE_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey: envOr("SQLSCRIBE_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:          "integration-tests",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	seed, err := newMinioClient(cfg)
	if err != nil {
		t.Fatalf("newMinioClient() error = %v", err)
	}
	exists, err := seed.client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		t.Fatalf("BucketExists() error = %v", err)
	}
	if !exists {
		if err := seed.client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			t.Fatalf("MakeBucket() error = %v", err)
		}
	}
	payload := []byte("CREATE TABLE t (id INT);")
	if _, err := seed.client.PutObject(ctx, cfg.Bucket, "integration-tests/schemas/t.sql", bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{ContentType: "application/sql"}); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}

	store, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stat, err := store.Stat(ctx, "schemas/t.sql")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Size != int64(len(payload)) {
		t.Fatalf("Stat().Size = %d, want %d", stat.Size, len(payload))
	}

	reader, err := store.Get(ctx, "schemas/t.sql")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readPayload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("reader.Close() error = %v", err)
	}
	if !bytes.Equal(readPayload, payload) {
		t.Fatalf("Get() payload = %q, want %q", string(readPayload), string(payload))
	}

	objects, err := store.List(ctx, "schemas/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) == 0 || objects[0].Key != "schemas/t.sql" {
		t.Fatalf("List() = %#v", objects)
	}

	if _, err := store.Stat(ctx, "schemas/missing.sql"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() missing error = %v, want ErrObjectNotFound", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
