// Package queue carries smoothing frames and viewer key presses over Redis
// streams.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studyguide.cvdemos/pkg/common"
)

// MaxFrames bounds the frame stream; older frames are trimmed.
const MaxFrames = 64

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(ctx context.Context, addr string) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// FramesStream is the stream a session's frames are published to.
func FramesStream(session string) string {
	return fmt.Sprintf("smoothing:%s:frames", session)
}

// KeysStream is the stream a viewer sends key presses to.
func KeysStream(session string) string {
	return fmt.Sprintf("smoothing:%s:keys", session)
}

func (r *RedisClient) PublishFrame(ctx context.Context, msg *common.FrameMessage) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	result := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: FramesStream(msg.Session),
		MaxLen: MaxFrames,
		Approx: true,
		Values: map[string]interface{}{"data": b},
	})

	return result.Val(), result.Err()
}

func (r *RedisClient) PublishKey(ctx context.Context, msg *common.KeyMessage) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	result := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: KeysStream(msg.Session),
		Values: map[string]interface{}{"data": b},
	})

	return result.Val(), result.Err()
}

// ReadKey returns the first key message after afterID, waiting up to block.
// A timeout yields an empty id and no error; a non-positive block polls.
func (r *RedisClient) ReadKey(ctx context.Context, session, afterID string, block time.Duration) (string, *common.KeyMessage, error) {
	result, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{KeysStream(session), afterID},
		Count:   1,
		Block:   blockArg(block),
	}).Result()

	if errors.Is(err, redis.Nil) {
		return "", nil, nil
	}
	if err != nil || len(result) == 0 || len(result[0].Messages) == 0 {
		return "", nil, err
	}

	msg := result[0].Messages[0]
	var key common.KeyMessage
	if err := json.Unmarshal(bytesFromInterface(msg.Values["data"]), &key); err != nil {
		return msg.ID, nil, nil
	}

	return msg.ID, &key, nil
}

// ReadFrames returns up to count frames after afterID, waiting up to block
// for the first one.
func (r *RedisClient) ReadFrames(ctx context.Context, session, afterID string, count int64, block time.Duration) ([]FrameEntry, error) {
	result, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{FramesStream(session), afterID},
		Count:   count,
		Block:   blockArg(block),
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil || len(result) == 0 {
		return nil, err
	}

	entries := make([]FrameEntry, 0, len(result[0].Messages))
	for _, msg := range result[0].Messages {
		var frame common.FrameMessage
		if err := json.Unmarshal(bytesFromInterface(msg.Values["data"]), &frame); err != nil {
			entries = append(entries, FrameEntry{ID: msg.ID})
			continue
		}
		entries = append(entries, FrameEntry{ID: msg.ID, Frame: &frame})
	}

	return entries, nil
}

// FrameEntry is one stream entry; Frame is nil when the payload could not
// be decoded.
type FrameEntry struct {
	ID    string
	Frame *common.FrameMessage
}

// blockArg maps a wait duration to XREAD BLOCK semantics: negative omits
// BLOCK, and positive values are at least one millisecond since BLOCK 0
// waits forever.
func blockArg(block time.Duration) time.Duration {
	if block <= 0 {
		return -1
	}
	if block < time.Millisecond {
		return time.Millisecond
	}
	return block
}

func bytesFromInterface(v interface{}) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	default:
		b, _ := json.Marshal(t)
		return b
	}
}
