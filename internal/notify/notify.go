package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types published after a committed change.
const (
	TypeRequestSent      = "request.sent"
	TypeDesignerAssigned = "designer.assigned"
	TypeProposalAccepted = "proposal.accepted"
	TypeProposalRejected = "proposal.rejected"
	TypeSearchReindex    = "search.reindex"
)

type Event struct {
	Type      string         `json:"type"`
	ProjectID string         `json:"project_id,omitempty"`
	EntityID  string         `json:"entity_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	TS        string         `json:"ts"`
}

// Sink delivers events to an external collaborator.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// RedisSink publishes events as JSON on a pub/sub channel.
type RedisSink struct {
	Client  *redis.Client
	Channel string
}

// NewRedisSink connects to addr and verifies the connection.
func NewRedisSink(ctx context.Context, addr, password string, db int, channel string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisSink{Client: client, Channel: channel}, nil
}

func (s *RedisSink) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.Client.Publish(ctx, s.Channel, data).Err()
}

func (s *RedisSink) Close() error {
	return s.Client.Close()
}
