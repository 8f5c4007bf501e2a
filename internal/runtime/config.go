// Package runtime builds the process collaborators, queue and blob
// store, from the environment. Both the API node and the worker nodes
// go through here so the two always agree on queue names and bucket
// layout.
package runtime

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/paceml-cloud/paceml/internal/queue"
	"github.com/paceml-cloud/paceml/internal/queue/memory"
	"github.com/paceml-cloud/paceml/internal/queue/redis"
	"github.com/paceml-cloud/paceml/internal/storage"
	"github.com/paceml-cloud/paceml/internal/storage/minio"
	"github.com/paceml-cloud/paceml/pkg/env"
)

// NodeID names this process for queue recovery: the configured id,
// falling back to the hostname, falling back to a random id. In-flight
// deliveries are parked under this name, so a restarted node only
// reclaims its own.
func NodeID(vars env.Environment) string {
	if vars.NodeID != "" {
		return vars.NodeID
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}

// BuildQueue returns the job queue configured by the environment.
func BuildQueue(vars env.Environment) (queue.Queue, error) {
	switch vars.QueueType {
	case "redis":
		return redis.New(redis.Config{
			Addr:           vars.RedisAddr,
			Password:       vars.RedisPassword,
			DB:             vars.RedisDB,
			Name:           vars.QueueName,
			Node:           NodeID(vars),
			ReceiveTimeout: vars.ReceiveTimeout,
		}), nil
	case "memory":
		// single-process deployments and local development only
		return memory.New(64), nil
	default:
		return nil, fmt.Errorf("unknown queue type %q", vars.QueueType)
	}
}

// BuildStorage returns the blob store configured by the environment.
func BuildStorage(ctx context.Context, vars env.Environment) (storage.Store, error) {
	switch vars.StorageType {
	case "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:  vars.StorageEndpoint,
			AccessKey: vars.StorageAccess,
			SecretKey: vars.StorageSecret,
			Bucket:    vars.StorageBucket,
			Secure:    vars.StorageSecure,
		})
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", vars.StorageType)
	}
}
