// Package redis GenerationEvents 事件总线操作
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"titlegen-admin/internal/shared/eventbus"
)

// PublishGenerationEvent 发布生成事件
func (s *Store) PublishGenerationEvent(ctx context.Context, sessionID string, event *eventbus.GenerationEvent) error {
	key := eventbus.KeyGenerationEvents + sessionID

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: key,
		MaxLen: eventbus.MaxStreamLength,
		Approx: true,
		Values: map[string]interface{}{
			"type":      event.Type,
			"seq":       event.Seq,
			"timestamp": event.Timestamp.Format(time.RFC3339Nano),
			"payload":   string(payloadJSON),
		},
	}

	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("[Redis/EventBus] Published event: session=%s id=%s seq=%d type=%s", sessionID, id, event.Seq, event.Type)
	return nil
}

// decodeMessage 解析 Stream 消息为 GenerationEvent
func decodeMessage(sessionID string, msg redis.XMessage) *eventbus.GenerationEvent {
	event := &eventbus.GenerationEvent{
		ID:        msg.ID,
		SessionID: sessionID,
	}

	if t, ok := msg.Values["type"].(string); ok {
		event.Type = t
	}
	if seqStr, ok := msg.Values["seq"].(string); ok {
		if seq, err := strconv.Atoi(seqStr); err == nil {
			event.Seq = seq
		}
	}
	if ts, ok := msg.Values["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			event.Timestamp = t
		}
	}
	if payloadStr, ok := msg.Values["payload"].(string); ok {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(payloadStr), &payload); err == nil {
			event.Payload = payload
		}
	}

	return event
}

// GetGenerationEvents 获取会话的事件列表（补发用）
func (s *Store) GetGenerationEvents(ctx context.Context, sessionID string, fromID string, count int64) ([]*eventbus.GenerationEvent, error) {
	key := eventbus.KeyGenerationEvents + sessionID

	if fromID == "" {
		fromID = "0"
	}

	msgs, err := s.client.XRange(ctx, key, fromID, "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	var events []*eventbus.GenerationEvent
	for _, msg := range msgs {
		events = append(events, decodeMessage(sessionID, msg))

		if count > 0 && int64(len(events)) >= count {
			break
		}
	}

	return events, nil
}

// GetGenerationEventCount 获取事件数量
func (s *Store) GetGenerationEventCount(ctx context.Context, sessionID string) (int64, error) {
	key := eventbus.KeyGenerationEvents + sessionID
	return s.client.XLen(ctx, key).Result()
}

// SubscribeGenerationEvents 订阅会话的生成事件
//
// 返回的 channel 在 ctx 取消或订阅出错时关闭。
// 从 "$" 开始只接收订阅之后发布的事件，历史事件走 GetGenerationEvents 补发。
func (s *Store) SubscribeGenerationEvents(ctx context.Context, sessionID string) (<-chan *eventbus.GenerationEvent, error) {
	key := eventbus.KeyGenerationEvents + sessionID
	ch := make(chan *eventbus.GenerationEvent, 100)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			streams, err := s.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{key, lastID},
				Count:   10,
				Block:   5 * time.Second,
			}).Result()

			if err != nil {
				if err == redis.Nil {
					continue
				}
				log.Printf("[Redis/EventBus] Event subscription error: %v", err)
				return
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					event := decodeMessage(sessionID, msg)

					select {
					case ch <- event:
						lastID = msg.ID
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

// DeleteGenerationEvents 删除会话的事件流
func (s *Store) DeleteGenerationEvents(ctx context.Context, sessionID string) error {
	key := eventbus.KeyGenerationEvents + sessionID
	return s.client.Del(ctx, key).Err()
}
