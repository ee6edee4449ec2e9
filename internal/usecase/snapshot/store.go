package snapshot

import (
	"context"
	"encoding/json"

	snapshotv1 "github.com/Karlli16/OrderMatch/internal/domain/snapshot/v1"
	"github.com/Karlli16/OrderMatch/pkg/errors"
	"github.com/Karlli16/OrderMatch/pkg/logger"
	"github.com/Karlli16/OrderMatch/pkg/redis"
)

// Store persists engine snapshots in Redis under a single key.
type Store struct {
	key         string
	logger      *logger.Logger
	redisclient redis.Client
}

// NewStore creates a new snapshot store backed by the given Redis client.
func NewStore(redisclient redis.Client, key string, log *logger.Logger) *Store {
	return &Store{
		key:         key,
		redisclient: redisclient,
		logger:      log,
	}
}

// Store serializes the snapshot and writes it to Redis.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "key", Value: s.key})
		return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key, buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "key", Value: s.key})
		return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	s.logger.InfoContext(ctx, "snapshot stored",
		logger.Field{Key: "key", Value: s.key},
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
	)
	return nil
}

// Load reads the snapshot from Redis. A missing snapshot is returned as
// (nil, nil).
func (s *Store) Load(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "key", Value: s.key})
		return nil, errors.NewTracer(string(errors.SnapshotLoadError)).Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, "no snapshot found", logger.Field{Key: "key", Value: s.key})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "key", Value: s.key})
		return nil, errors.NewTracer(string(errors.SnapshotLoadError)).Wrap(err)
	}

	return &snapshot, nil
}
