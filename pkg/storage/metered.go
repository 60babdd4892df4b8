package storage

import (
	"context"
	"io"
	"time"

	"github.com/KeremKalyoncu/objstore/internal/metrics"
)

// Metered records every call on m
type Metered struct {
	inner   Storage
	metrics *metrics.Metrics
}

// NewMetered wraps inner. A nil m records on the process-wide metrics.
func NewMetered(inner Storage, m *metrics.Metrics) *Metered {
	if m == nil {
		m = metrics.GetMetrics()
	}
	return &Metered{inner: inner, metrics: m}
}

func (s *Metered) Store(ctx context.Context, body io.Reader, name string) (*Object, error) {
	start := time.Now()
	obj, err := s.inner.Store(ctx, body, name)

	var size int64
	if obj != nil {
		size = obj.Size
	}
	s.metrics.RecordUpload(time.Since(start), size, err)

	return obj, err
}

func (s *Metered) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	s.metrics.RecordDelete(time.Since(start), err)
	return err
}
