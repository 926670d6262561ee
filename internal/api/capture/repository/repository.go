package captureRepository

import (
	"PerfectFit/internal/api/capture"
	"PerfectFit/internal/entity"
	contextPkg "PerfectFit/pkg/context"
	"PerfectFit/pkg/redis"
	"errors"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const keyPrefix = "capture:"

// Repository persists one CapturedData per capture session.
type Repository interface {
	Save(ctx context.Context, data *entity.CapturedData) error
	Get(ctx context.Context, id string) (*entity.CapturedData, error)
	// Update applies fn to the stored record and saves the result atomically.
	// The record keeps the expiry it was saved with.
	Update(ctx context.Context, id string, fn func(*entity.CapturedData) error) (*entity.CapturedData, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	kv  redis.IRedis
	log *logrus.Logger
	ttl time.Duration
}

func New(kv redis.IRedis, log *logrus.Logger, ttl time.Duration) Repository {
	return &repository{kv: kv, log: log, ttl: ttl}
}

func key(id string) string {
	return keyPrefix + id
}

func (r *repository) Save(ctx context.Context, data *entity.CapturedData) error {
	if data == nil || data.ID == "" {
		return fmt.Errorf("captured data without id")
	}

	payload, err := jsoniter.Marshal(data)
	if err != nil {
		return err
	}

	if err := r.kv.Set(ctx, key(data.ID), payload, r.ttl); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"capture_id": data.ID,
			"error":      err.Error(),
		}).Error("Failed to save captured data")
		return err
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*entity.CapturedData, error) {
	payload, err := r.kv.Get(ctx, key(id))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, capture.ErrCaptureNotFound
	}
	if err != nil {
		return nil, err
	}

	var data entity.CapturedData
	if err := jsoniter.Unmarshal(payload, &data); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"capture_id": id,
			"error":      err.Error(),
		}).Error("Stored captured data is corrupt")
		return nil, fmt.Errorf("decode captured data %s: %w", id, err)
	}
	return &data, nil
}

func (r *repository) Update(ctx context.Context, id string, fn func(*entity.CapturedData) error) (*entity.CapturedData, error) {
	var data *entity.CapturedData
	err := r.kv.Update(ctx, key(id), func(current []byte) ([]byte, error) {
		var decoded entity.CapturedData
		if err := jsoniter.Unmarshal(current, &decoded); err != nil {
			return nil, fmt.Errorf("decode captured data %s: %w", id, err)
		}
		if err := fn(&decoded); err != nil {
			return nil, err
		}
		data = &decoded
		return jsoniter.Marshal(&decoded)
	})
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, capture.ErrCaptureNotFound
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"capture_id": id,
			"error":      err.Error(),
		}).Warn("Failed to update captured data")
		return nil, err
	}
	return data, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, key(id))
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemory keeps records in process, for single-instance deployments and
// tests.
func NewMemory() Repository {
	return &memoryRepository{records: make(map[string][]byte)}
}

func (m *memoryRepository) Save(ctx context.Context, data *entity.CapturedData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if data == nil || data.ID == "" {
		return fmt.Errorf("captured data without id")
	}
	payload, err := jsoniter.Marshal(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[data.ID] = payload
	return nil
}

func (m *memoryRepository) Get(ctx context.Context, id string) (*entity.CapturedData, error) {
	m.mu.RLock()
	payload, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, capture.ErrCaptureNotFound
	}

	var data entity.CapturedData
	if err := jsoniter.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (m *memoryRepository) Update(ctx context.Context, id string, fn func(*entity.CapturedData) error) (*entity.CapturedData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, ok := m.records[id]
	if !ok {
		return nil, capture.ErrCaptureNotFound
	}

	var data entity.CapturedData
	if err := jsoniter.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	if err := fn(&data); err != nil {
		return nil, err
	}

	updated, err := jsoniter.Marshal(&data)
	if err != nil {
		return nil, err
	}
	m.records[id] = updated
	return &data, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}
