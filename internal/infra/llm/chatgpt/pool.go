package chatgpt

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	poolFailureLimit = 3
	poolCooldown     = 30 * time.Second
)

// Pool spreads calls across a set of credentials. Keys that fail repeatedly
// are skipped until their cooldown elapses; when every key is cooling down
// the least recently benched one is used anyway.
type Pool struct {
	mu      sync.Mutex
	clients []*Client
	health  []keyHealth
	next    int
}

type keyHealth struct {
	consecutiveFails int
	benchedUntil     time.Time
}

// NewPool builds one client per API key.
func NewPool(apiKeys []string, baseURL string) (*Pool, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("credential pool requires at least one api key")
	}
	clients := make([]*Client, 0, len(apiKeys))
	for _, key := range apiKeys {
		client, err := NewClient(key, baseURL)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return &Pool{
		clients: clients,
		health:  make([]keyHealth, len(clients)),
	}, nil
}

// Size reports the number of pooled credentials.
func (p *Pool) Size() int {
	return len(p.clients)
}

// CreateChatCompletionOn pins the call to one credential slot. Used by
// workers that dedicate a whole credential to a stream of calls; failures
// still count against that key's health.
func (p *Pool) CreateChatCompletionOn(ctx context.Context, slot int, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	slot %= len(p.clients)
	resp, err := p.clients[slot].CreateChatCompletion(ctx, req)
	p.record(slot, err)
	return resp, err
}

// CreateChatCompletion runs a completion on the healthiest available key.
func (p *Pool) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	slot := p.pick()
	resp, err := p.clients[slot].CreateChatCompletion(ctx, req)
	p.record(slot, err)
	return resp, err
}

// CreateEmbedding runs an embeddings call on the healthiest available key.
func (p *Pool) CreateEmbedding(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	slot := p.pick()
	resp, err := p.clients[slot].CreateEmbedding(ctx, req)
	p.record(slot, err)
	return resp, err
}

// CreateTranscription runs a transcription call on the healthiest available key.
func (p *Pool) CreateTranscription(ctx context.Context, req TranscriptionRequest) (TranscriptionResponse, error) {
	slot := p.pick()
	resp, err := p.clients[slot].CreateTranscription(ctx, req)
	p.record(slot, err)
	return resp, err
}

func (p *Pool) pick() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()

	start := p.next
	for i := 0; i < len(p.clients); i++ {
		slot := (start + i) % len(p.clients)
		if now.After(p.health[slot].benchedUntil) {
			p.next = (slot + 1) % len(p.clients)
			return slot
		}
	}

	// Everyone is benched; take the key whose cooldown expires first.
	best := start
	for slot := range p.health {
		if p.health[slot].benchedUntil.Before(p.health[best].benchedUntil) {
			best = slot
		}
	}
	p.next = (best + 1) % len(p.clients)
	return best
}

func (p *Pool) record(slot int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		p.health[slot] = keyHealth{}
		return
	}
	p.health[slot].consecutiveFails++
	if p.health[slot].consecutiveFails >= poolFailureLimit {
		p.health[slot].benchedUntil = time.Now().Add(poolCooldown)
		p.health[slot].consecutiveFails = 0
	}
}
