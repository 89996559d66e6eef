package invservice

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/farmsync/internal/config"
	"github.com/gravitas-games/farmsync/pkg/models"
)

// RedisStore persists records in Redis: one hash per record plus a
// per-owner set index, all under a configurable key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + "record:" + id
}

func (s *RedisStore) ownerKey(ownerID string) string {
	return s.prefix + "owner:" + ownerID
}

// ListByOwner returns every record owned by the user.
func (s *RedisStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Record, error) {
	ids, err := s.client.SMembers(ctx, s.ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read owner index: %w", err)
	}
	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err == ErrNotFound {
			// Dangling index entry; repair opportunistically.
			s.client.SRem(ctx, s.ownerKey(ownerID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one record by id.
func (s *RedisStore) Get(ctx context.Context, id string) (models.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	if len(fields) == 0 {
		return models.Record{}, ErrNotFound
	}
	return recordFromFields(id, fields), nil
}

// Insert stores a new record.
func (s *RedisStore) Insert(ctx context.Context, rec models.Record) (string, error) {
	existing, err := s.ListByOwner(ctx, rec.OwnerID)
	if err != nil {
		return "", err
	}
	if slotTaken(existing, rec, "") {
		return "", ErrSlotOccupied
	}
	seq, err := s.client.Incr(ctx, s.prefix+"seq").Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate record id: %w", err)
	}
	rec.ID = fmt.Sprintf("r%06d", seq)
	if err := s.write(ctx, rec); err != nil {
		return "", err
	}
	if err := s.client.SAdd(ctx, s.ownerKey(rec.OwnerID), rec.ID).Err(); err != nil {
		return "", fmt.Errorf("failed to index record: %w", err)
	}
	return rec.ID, nil
}

// Update rewrites an existing record.
func (s *RedisStore) Update(ctx context.Context, id string, rec models.Record) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	existing, err := s.ListByOwner(ctx, rec.OwnerID)
	if err != nil {
		return err
	}
	if slotTaken(existing, rec, id) {
		return ErrSlotOccupied
	}
	rec.ID = id
	if err := s.write(ctx, rec); err != nil {
		return err
	}
	if current.OwnerID != rec.OwnerID {
		s.client.SRem(ctx, s.ownerKey(current.OwnerID), id)
		if err := s.client.SAdd(ctx, s.ownerKey(rec.OwnerID), id).Err(); err != nil {
			return fmt.Errorf("failed to reindex record: %w", err)
		}
	}
	return nil
}

// Delete removes a record.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.recordKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	s.client.SRem(ctx, s.ownerKey(rec.OwnerID), id)
	return nil
}

func (s *RedisStore) write(ctx context.Context, rec models.Record) error {
	err := s.client.HSet(ctx, s.recordKey(rec.ID), map[string]interface{}{
		"owner":     rec.OwnerID,
		"item":      rec.Item,
		"quantity":  rec.Quantity,
		"inventory": rec.Inventory,
		"slot":      rec.SlotIndex,
		"quality":   rec.Quality,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
	}
	return nil
}

func recordFromFields(id string, fields map[string]string) models.Record {
	qty, _ := strconv.Atoi(fields["quantity"])
	slot, _ := strconv.Atoi(fields["slot"])
	quality, _ := strconv.Atoi(fields["quality"])
	return models.Record{
		ID:        id,
		OwnerID:   fields["owner"],
		Item:      fields["item"],
		Quantity:  qty,
		Inventory: fields["inventory"],
		SlotIndex: slot,
		Quality:   quality,
	}
}
