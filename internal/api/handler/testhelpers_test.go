package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/sbsidd17/yt-dl-api/internal/domain"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockResolver is a test implementation of Resolver.
type mockResolver struct {
	info   *domain.DownloadInfo
	err    error
	gotURL string
	calls  int
}

func (m *mockResolver) Resolve(ctx context.Context, rawURL string) (*domain.DownloadInfo, error) {
	m.calls++
	m.gotURL = rawURL
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

// mockHistoryStore is a test implementation of HistoryStore.
type mockHistoryStore struct {
	records    []domain.HistoryRecord
	err        error
	persistent bool
	gotFilter  domain.HistoryFilter
}

func (m *mockHistoryStore) Query(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	m.gotFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func (m *mockHistoryStore) Persistent() bool {
	return m.persistent
}

// mockChecker implements both Checker and Pinger.
type mockChecker struct {
	err error
}

func (m *mockChecker) Available(ctx context.Context) error { return m.err }

func (m *mockChecker) Ping(ctx context.Context) error { return m.err }
