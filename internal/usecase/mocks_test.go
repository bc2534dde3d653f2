package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/source"
)

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) ShouldAct(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendMessage(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

// mapBuilder builds sources from a fixed table and rejects everything else.
type mapBuilder struct {
	sources map[string]source.Source
	err     error
}

func (b mapBuilder) Build(name string, _ domain.SourceConfig) (source.Source, error) {
	if src, ok := b.sources[name]; ok {
		return src, nil
	}
	return nil, b.err
}

func (b mapBuilder) Check(name string, cfg domain.SourceConfig) error {
	_, err := b.Build(name, cfg)
	return err
}

type rescheduleRecorder struct {
	delays []time.Duration
}

func (r *rescheduleRecorder) reschedule(d time.Duration) {
	r.delays = append(r.delays, d)
}
