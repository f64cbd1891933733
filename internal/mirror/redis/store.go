// Package redis stores mirror documents as Redis hashes. Conditional writes
// run as Lua scripts so the revision check and the write are atomic.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CarCatalog/internal/mirror"
)

const (
	fieldDoc = "doc"
	fieldRev = "rev"
)

// KEYS[1] document hash, KEYS[2] revision counter. ARGV[1] document JSON.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
local rev = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], "doc", ARGV[1], "rev", tostring(rev))
return rev
`)

// ARGV[2] expected revision. Returns -1 when the hash is missing and 0 on a
// revision mismatch.
var replaceScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "rev")
if not cur then
  return -1
end
if cur ~= ARGV[2] then
  return 0
end
local rev = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], "doc", ARGV[1], "rev", tostring(rev))
return rev
`)

// Store implements mirror.Store on Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// DefaultPrefix namespaces the car documents and their revision counter.
const DefaultPrefix = "cars:"

// NewStore keeps documents under prefix+id, e.g. "cars:42".
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(id string) string { return s.prefix + id }
func (s *Store) seqKey() string       { return s.prefix + "_seq" }

func (s *Store) Create(ctx context.Context, doc *mirror.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	rev, err := createScript.Run(ctx, s.client, []string{s.key(doc.ID), s.seqKey()}, data).Int64()
	if err != nil {
		return fmt.Errorf("redis create document: %w", err)
	}
	if rev == 0 {
		return mirror.ErrDocumentExists
	}
	doc.Rev = mirror.Revision{Seq: rev}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*mirror.Document, error) {
	vals, err := s.client.HMGet(ctx, s.key(id), fieldDoc, fieldRev).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get document: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, mirror.ErrDocumentNotFound
	}
	var doc mirror.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	revStr, _ := vals[1].(string)
	rev, err := strconv.ParseInt(revStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse document revision %q: %w", revStr, err)
	}
	doc.Rev = mirror.Revision{Seq: rev}
	return &doc, nil
}

func (s *Store) Replace(ctx context.Context, doc *mirror.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	expected := strconv.FormatInt(doc.Rev.Seq, 10)
	rev, err := replaceScript.Run(ctx, s.client, []string{s.key(doc.ID), s.seqKey()}, data, expected).Int64()
	if err != nil {
		return fmt.Errorf("redis replace document: %w", err)
	}
	switch rev {
	case -1:
		return mirror.ErrDocumentNotFound
	case 0:
		return mirror.ErrVersionConflict
	}
	doc.Rev = mirror.Revision{Seq: rev}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete document: %w", err)
	}
	if n == 0 {
		return mirror.ErrDocumentNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Join(errors.New("redis mirror store unreachable"), err)
	}
	return nil
}
