// Package minio backs the blob store with an S3-compatible object
// store.
package minio

import (
	"bytes"
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/paceml-cloud/paceml/internal/storage"
)

type Store struct {
	client *miniogo.Client
	bucket string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create object store client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "failed to probe bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "failed to create bucket")
		}
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Get(ctx context.Context, datasetID, versionID int64) ([]byte, error) {
	return s.get(ctx, storage.DataKey(datasetID, versionID))
}

func (s *Store) Put(ctx context.Context, datasetID, versionID int64, data []byte) (string, error) {
	return s.put(ctx, storage.DataKey(datasetID, versionID), data)
}

func (s *Store) GetArtifact(ctx context.Context, datasetID, versionID int64, name string) ([]byte, error) {
	return s.get(ctx, storage.ArtifactKey(datasetID, versionID, name))
}

func (s *Store) PutArtifact(ctx context.Context, datasetID, versionID int64, name string, data []byte) (string, error) {
	return s.put(ctx, storage.ArtifactKey(datasetID, versionID, name), data)
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := miniogo.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

func (s *Store) put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(
		ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return "", err
	}

	return key, nil
}
