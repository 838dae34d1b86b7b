package fallbackstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/careops/internal/domain/mortality"
)

// ValkeyStore counts category fallbacks in a sorted set of a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "careops"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// RecordFallback bumps the counter for the field and unseen label.
func (s *ValkeyStore) RecordFallback(ctx context.Context, fallback mortality.Fallback) error {
	if fallback.Field == "" {
		return nil
	}
	cmd := s.client.B().Zincrby().Key(s.countsKey()).Increment(1).Member(member(fallback.Field, fallback.Label)).Build()
	return s.client.Do(ctx, cmd).Error()
}

// TopFallbacks returns the most frequent unseen labels.
func (s *ValkeyStore) TopFallbacks(ctx context.Context, limit int) ([]mortality.FallbackStat, error) {
	if limit <= 0 {
		limit = 10
	}
	resp := s.client.Do(ctx, s.client.B().Zrevrange().Key(s.countsKey()).Start(0).Stop(int64(limit-1)).Withscores().Build())
	arr, err := resp.ToArray()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]mortality.FallbackStat, 0, len(arr))
	for i := 0; i < len(arr); {
		var (
			name  string
			score float64
		)
		if tuple, tupleErr := arr[i].ToArray(); tupleErr == nil && len(tuple) == 2 {
			// RESP3 returns [member, score] per element
			if name, err = tuple[0].ToString(); err != nil {
				return nil, err
			}
			if score, err = tuple[1].ToFloat64(); err != nil {
				return nil, err
			}
			i++
		} else {
			// RESP2 returns a flat alternating array.
			if i+1 >= len(arr) {
				break
			}
			if name, err = arr[i].ToString(); err != nil {
				return nil, err
			}
			if score, err = arr[i+1].ToFloat64(); err != nil {
				return nil, err
			}
			i += 2
		}
		field, label := splitMember(name)
		out = append(out, mortality.FallbackStat{Field: field, Label: label, Count: int64(score)})
	}
	return out, nil
}

func (s *ValkeyStore) countsKey() string {
	return fmt.Sprintf("%s:fallbacks", s.prefix)
}

func member(field, label string) string {
	return field + "|" + label
}

// field names never contain the separator; labels may.
func splitMember(m string) (string, string) {
	field, label, _ := strings.Cut(m, "|")
	return field, label
}

var _ mortality.FallbackStore = (*ValkeyStore)(nil)
