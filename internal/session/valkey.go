package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/greatgiftheist/agent-hq/internal/onboarding"
)

const keyPrefix = "agenthq:session:"

// ValkeyStore keeps snapshots as JSON values with a TTL.
type ValkeyStore struct {
	client valkey.Client
	ttl    time.Duration
}

// NewValkeyStore connects to a Valkey server at addr.
func NewValkeyStore(addr string, ttl time.Duration) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return &ValkeyStore{client: client, ttl: ttl}, nil
}

func key(id string) string {
	return keyPrefix + id
}

// Get loads a snapshot.
func (v *ValkeyStore) Get(ctx context.Context, id string) (onboarding.Snapshot, error) {
	data, err := v.client.Do(ctx, v.client.B().Get().Key(key(id)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return onboarding.Snapshot{}, ErrNotFound
		}
		return onboarding.Snapshot{}, fmt.Errorf("get session: %w", err)
	}

	var snap onboarding.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return onboarding.Snapshot{}, fmt.Errorf("decode session: %w", err)
	}
	return snap, nil
}

// Put stores a snapshot and refreshes its TTL.
func (v *ValkeyStore) Put(ctx context.Context, snap onboarding.Snapshot) error {
	if snap.SessionID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	set := v.client.B().Set().Key(key(snap.SessionID)).Value(valkey.BinaryString(data))
	if v.ttl > 0 {
		err = v.client.Do(ctx, set.ExSeconds(int64(v.ttl.Seconds())).Build()).Error()
	} else {
		err = v.client.Do(ctx, set.Build()).Error()
	}
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (v *ValkeyStore) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (v *ValkeyStore) Close() {
	v.client.Close()
}

var _ Store = (*ValkeyStore)(nil)
