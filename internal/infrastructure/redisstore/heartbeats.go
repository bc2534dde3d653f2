package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const (
	connectionTimeout = 2 * time.Second
	keyPrefix         = "newscollector:heartbeats:"
	memberSeparator   = "|"
)

// NewClient creates a Redis client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// HeartbeatStore keeps one sorted set per group. Members encode (order, instance id)
// so that their lexicographic order matches the election order; scores are timestamps.
type HeartbeatStore struct {
	client *redis.Client
}

var (
	_ ports.HeartbeatStore  = (*HeartbeatStore)(nil)
	_ ports.HeartbeatPruner = (*HeartbeatStore)(nil)
)

// NewHeartbeatStore wires the client.
func NewHeartbeatStore(client *redis.Client) *HeartbeatStore {
	return &HeartbeatStore{client: client}
}

func (s *HeartbeatStore) key(group string) string {
	return keyPrefix + group
}

// AddRecord refreshes the instance's score. Repeated beats of one instance share a member.
func (s *HeartbeatStore) AddRecord(ctx context.Context, record domain.HeartbeatRecord) error {
	if record.Order < 0 {
		return fmt.Errorf("heartbeat order must not be negative: %d", record.Order)
	}
	err := s.client.ZAdd(ctx, s.key(record.Group), redis.Z{
		Score:  float64(record.Timestamp),
		Member: encodeMember(record.Order, record.InstanceID),
	}).Err()
	if err != nil {
		return fmt.Errorf("add heartbeat: %w", err)
	}
	return nil
}

func (s *HeartbeatStore) LeastAfter(ctx context.Context, group string, cutoff int64) (string, bool, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key(group), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(members) == 0) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query heartbeats: %w", err)
	}

	least := members[0]
	for _, m := range members[1:] {
		if m < least {
			least = m
		}
	}
	id, err := decodeMember(least)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *HeartbeatStore) PruneBefore(ctx context.Context, group string, cutoff int64) error {
	err := s.client.ZRemRangeByScore(ctx, s.key(group), "-inf", "("+strconv.FormatInt(cutoff, 10)).Err()
	if err != nil {
		return fmt.Errorf("prune heartbeats: %w", err)
	}
	return nil
}

func encodeMember(order int64, instanceID string) string {
	return fmt.Sprintf("%020d%s%s", order, memberSeparator, instanceID)
}

func decodeMember(member string) (string, error) {
	_, id, ok := strings.Cut(member, memberSeparator)
	if !ok {
		return "", fmt.Errorf("malformed heartbeat member %q", member)
	}
	return id, nil
}
