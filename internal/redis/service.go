// Package redis caches file and node metadata. Access-control state
// (grants, group membership) is never cached here: the evaluator must
// see membership as of evaluation time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/L-Ayim/Vault/internal/models"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const metadataTTL = 24 * time.Hour

type Service struct {
	client *redis.Client
}

// NewService connects to Redis. Returns nil on connection failure so
// callers degrade to cache-less operation, matching how the rest of
// the service treats the cache as optional.
func NewService(addr, password string, db int) *Service {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to connect to Redis, running without cache")
		return nil
	}

	logger.Log.Info().Str("addr", addr).Msg("Connected to Redis")
	return &Service{client: client}
}

func fileKey(id uuid.UUID) string { return fmt.Sprintf("file:%s", id) }
func nodeKey(id uuid.UUID) string { return fmt.Sprintf("node:%s", id) }

func (s *Service) set(ctx context.Context, key string, value any) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, metadataTTL).Err()
}

func (s *Service) get(ctx context.Context, key string, dest any) (bool, error) {
	if s == nil {
		return false, nil
	}
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) invalidate(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

func (s *Service) SetFileMetadata(ctx context.Context, file *models.File) error {
	return s.set(ctx, fileKey(file.ID), file)
}

func (s *Service) GetFileMetadata(ctx context.Context, fileID uuid.UUID) (*models.File, error) {
	var file models.File
	ok, err := s.get(ctx, fileKey(fileID), &file)
	if err != nil || !ok {
		return nil, err
	}
	return &file, nil
}

func (s *Service) InvalidateFileMetadata(ctx context.Context, fileID uuid.UUID) error {
	return s.invalidate(ctx, fileKey(fileID))
}

func (s *Service) SetNodeMetadata(ctx context.Context, node *models.Node) error {
	return s.set(ctx, nodeKey(node.ID), node)
}

func (s *Service) GetNodeMetadata(ctx context.Context, nodeID uuid.UUID) (*models.Node, error) {
	var node models.Node
	ok, err := s.get(ctx, nodeKey(nodeID), &node)
	if err != nil || !ok {
		return nil, err
	}
	return &node, nil
}

func (s *Service) InvalidateNodeMetadata(ctx context.Context, nodeID uuid.UUID) error {
	return s.invalidate(ctx, nodeKey(nodeID))
}
