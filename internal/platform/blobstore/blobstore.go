// Package blobstore archives exported documents such as long-stay reports.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("blob not found")

type Object struct {
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	SHA256      string            `json:"sha256"`
	CreatedAt   time.Time         `json:"created_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Archive stores documents by key. Putting an existing key overwrites it.
type Archive interface {
	Put(ctx context.Context, key, contentType string, data []byte, meta map[string]string) (Object, error)
	Get(ctx context.Context, key string) (Object, []byte, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

func describe(key, contentType string, data []byte, meta map[string]string) Object {
	sum := sha256.Sum256(data)
	return Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
		CreatedAt:   time.Now().UTC(),
		Metadata:    meta,
	}
}

type memoryBlob struct {
	obj  Object
	data []byte
}

// Memory is an in-process Archive for development and tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]memoryBlob)}
}

func (m *Memory) Put(_ context.Context, key, contentType string, data []byte, meta map[string]string) (Object, error) {
	if key == "" {
		return Object{}, errors.New("blob key is required")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	obj := describe(key, contentType, cp, meta)

	m.mu.Lock()
	m.blobs[key] = memoryBlob{obj: obj, data: cp}
	m.mu.Unlock()
	return obj, nil
}

func (m *Memory) Get(_ context.Context, key string) (Object, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return Object{}, nil, ErrNotFound
	}
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return b.obj, cp, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Object
	for k, b := range m.blobs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, b.obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Discard drops every document. It backs REPORT_ARCHIVE=none.
type Discard struct{}

func (Discard) Put(_ context.Context, key, contentType string, data []byte, meta map[string]string) (Object, error) {
	return describe(key, contentType, data, meta), nil
}

func (Discard) Get(context.Context, string) (Object, []byte, error) {
	return Object{}, nil, ErrNotFound
}

func (Discard) List(context.Context, string) ([]Object, error) {
	return nil, nil
}
