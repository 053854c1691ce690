// Package redis provides a core.SessionStore backed by Redis.
//
// Each session uses two keys: a hash holding the session metadata (active
// agent, hop count, state) and a list holding the transcript. Turns are
// immutable, so Save only RPUSHes the turns the list does not hold yet.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hupe1980/travelmesh/core"
)

// DefaultKeyPrefix namespaces all keys written by the store.
const DefaultKeyPrefix = "travelmesh:session:"

const maxSaveRetries = 5

// ErrConflict is returned when concurrent writers kept invalidating a save.
var ErrConflict = errors.New("session save conflict")

// Options configures a Store.
type Options struct {
	// KeyPrefix is prepended to every key. Defaults to DefaultKeyPrefix.
	KeyPrefix string
	// TTL expires idle sessions. Zero keeps them forever.
	TTL time.Duration
}

// Store persists sessions in Redis.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New wraps an existing client. The caller keeps ownership of the client.
func New(client goredis.UniversalClient, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: DefaultKeyPrefix}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}

	return &Store{client: client, prefix: opts.KeyPrefix, ttl: opts.TTL}
}

// NewFromAddr dials addr and verifies the connection with PING.
func NewFromAddr(ctx context.Context, addr string, optFns ...func(o *Options)) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}

	return New(client, optFns...), nil
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) metaKey(id string) string  { return s.prefix + id }
func (s *Store) turnsKey(id string) string { return s.prefix + id + ":turns" }

// Create stores a fresh session, replacing any previous data under id.
func (s *Store) Create(ctx context.Context, id string, maxHops int) (*core.Session, error) {
	if id == "" {
		id = core.NewID()
	}

	if err := s.client.Del(ctx, s.metaKey(id), s.turnsKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("reset session %s: %w", id, err)
	}

	sess := core.NewSession(id, maxHops)
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// Get loads a session or returns core.ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, id string) (*core.Session, error) {
	var (
		metaCmd  *goredis.MapStringStringCmd
		turnsCmd *goredis.StringSliceCmd
	)

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, s.metaKey(id))
		turnsCmd = pipe.LRange(ctx, s.turnsKey(id), 0, -1)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}

	snap, err := decodeMeta(meta)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	snap.ID = id

	for i, raw := range turnsCmd.Val() {
		var turn core.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, fmt.Errorf("decode turn %d of session %s: %w", i, id, err)
		}

		snap.Turns = append(snap.Turns, turn)
	}

	return core.RestoreSession(snap), nil
}

// Save writes the session metadata and appends turns not yet stored. If the
// stored list is longer than the transcript it is rewritten.
func (s *Store) Save(ctx context.Context, sess *core.Session) error {
	if sess == nil {
		return fmt.Errorf("save session: nil session")
	}

	snap := sess.Snapshot()

	meta, err := encodeMeta(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", snap.ID, err)
	}

	metaKey, turnsKey := s.metaKey(snap.ID), s.turnsKey(snap.ID)

	txf := func(tx *goredis.Tx) error {
		stored, err := tx.LLen(ctx, turnsKey).Result()
		if err != nil {
			return err
		}

		rewrite := int(stored) > len(snap.Turns)

		pending := snap.Turns
		if !rewrite {
			pending = snap.Turns[stored:]
		}

		values := make([]any, 0, len(pending))

		for _, turn := range pending {
			data, err := json.Marshal(turn)
			if err != nil {
				return fmt.Errorf("encode turn %d: %w", turn.Index, err)
			}

			values = append(values, data)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if rewrite {
				pipe.Del(ctx, turnsKey)
			}

			pipe.HSet(ctx, metaKey, meta)

			if len(values) > 0 {
				pipe.RPush(ctx, turnsKey, values...)
			}

			if s.ttl > 0 {
				pipe.Expire(ctx, metaKey, s.ttl)
				pipe.Expire(ctx, turnsKey, s.ttl)
			}

			return nil
		})

		return err
	}

	for i := 0; i < maxSaveRetries; i++ {
		err = s.client.Watch(ctx, txf, metaKey, turnsKey)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}

	if errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("%w: %s", ErrConflict, snap.ID)
	}

	if err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}

	return nil
}

// Delete removes both keys of a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.metaKey(id), s.turnsKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	return nil
}

func encodeMeta(snap core.SessionSnapshot) (map[string]any, error) {
	state, err := json.Marshal(snap.State)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}

	metadata, err := json.Marshal(snap.Metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	return map[string]any{
		"active":   snap.Active,
		"hops":     snap.Hops,
		"max_hops": snap.MaxHops,
		"state":    string(state),
		"metadata": string(metadata),
		"created":  snap.Created.Format(time.RFC3339Nano),
		"updated":  snap.Updated.Format(time.RFC3339Nano),
	}, nil
}

func decodeMeta(meta map[string]string) (core.SessionSnapshot, error) {
	var (
		snap core.SessionSnapshot
		err  error
	)

	snap.Active = meta["active"]

	if snap.Hops, err = strconv.Atoi(meta["hops"]); err != nil {
		return snap, fmt.Errorf("hops: %w", err)
	}

	if snap.MaxHops, err = strconv.Atoi(meta["max_hops"]); err != nil {
		return snap, fmt.Errorf("max_hops: %w", err)
	}

	if v := meta["state"]; v != "" {
		if err := json.Unmarshal([]byte(v), &snap.State); err != nil {
			return snap, fmt.Errorf("state: %w", err)
		}
	}

	if v := meta["metadata"]; v != "" {
		if err := json.Unmarshal([]byte(v), &snap.Metadata); err != nil {
			return snap, fmt.Errorf("metadata: %w", err)
		}
	}

	if snap.Created, err = time.Parse(time.RFC3339Nano, meta["created"]); err != nil {
		return snap, fmt.Errorf("created: %w", err)
	}

	if snap.Updated, err = time.Parse(time.RFC3339Nano, meta["updated"]); err != nil {
		return snap, fmt.Errorf("updated: %w", err)
	}

	return snap, nil
}
