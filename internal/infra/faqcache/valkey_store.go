package faqcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/deepscalers/student-assistant/internal/domain/faq"
)

// ValkeyStore caches FAQ responses in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs the cache.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "faq"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (faq.Response, bool, error) {
	cmd := s.client.B().Get().Key(s.answerKey(key)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return faq.Response{}, false, nil
		}
		return faq.Response{}, false, err
	}
	var resp faq.Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return faq.Response{}, false, err
	}
	return resp, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, key string, resp faq.Response, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.answerKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) answerKey(key string) string {
	return fmt.Sprintf("%s:answer:%s", s.prefix, key)
}

var _ faq.AnswerCache = (*ValkeyStore)(nil)
