package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/sbsidd17/yt-dl-api/internal/cookies"
	"github.com/sbsidd17/yt-dl-api/internal/domain"
	"github.com/sbsidd17/yt-dl-api/internal/extractor"
)

// HistoryRecorder receives one record per resolution.
type HistoryRecorder interface {
	Record(rec domain.HistoryRecord)
}

// ExtractService turns a user supplied video URL into a direct media link.
type ExtractService struct {
	extractor extractor.Extractor
	cookies   cookies.Source
	history   HistoryRecorder
	logger    *slog.Logger

	group singleflight.Group
	slots *semaphore.Weighted // nil when unlimited

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context of one coalesced extraction and the number of
// callers still waiting on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewExtractService creates a new extract service. history may be nil;
// maxConcurrent <= 0 leaves extractions unbounded.
func NewExtractService(
	ex extractor.Extractor,
	src cookies.Source,
	history HistoryRecorder,
	maxConcurrent int,
	logger *slog.Logger,
) *ExtractService {
	if src == nil {
		src = cookies.None{}
	}
	svc := &ExtractService{
		extractor: ex,
		cookies:   src,
		history:   history,
		logger:    logger,
		flights:   make(map[string]*flight),
	}
	if maxConcurrent > 0 {
		svc.slots = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return svc
}

// extraction is the shared result of a coalesced call.
type extraction struct {
	info       *domain.DownloadInfo
	cookieKind string
}

// Resolve validates rawURL, extracts the video it names and maps the
// result. Errors are domain.ErrInvalidURL, domain.ErrExtractionUnavailable,
// or a *domain.ExtractionError for anything unexpected.
func (s *ExtractService) Resolve(ctx context.Context, rawURL string) (*domain.DownloadInfo, error) {
	start := time.Now()

	id, err := domain.ParseVideoID(rawURL)
	if err != nil {
		s.record(domain.HistoryRecord{}, start, nil, err)
		return nil, err
	}

	// Identical videos requested concurrently share one extraction. It keeps
	// running while any caller waits and is canceled when the last one leaves.
	key := id.String()
	f := s.join(ctx, key)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.extract(f.ctx, id)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		s.leave(key, f)
	case <-ctx.Done():
		if s.leave(key, f) {
			// Wait for the canceled extraction so its cookie jar is gone
			// before we return.
			<-ch
		}
		err := domain.NewExtractionError(id, "resolve", ctx.Err())
		s.record(domain.HistoryRecord{VideoID: id}, start, nil, err)
		return nil, err
	}

	rec := domain.HistoryRecord{VideoID: id}
	if res.Err != nil {
		s.record(rec, start, nil, res.Err)
		return nil, res.Err
	}

	ex := res.Val.(*extraction)
	rec.Cookies = ex.cookieKind
	s.record(rec, start, ex.info, nil)
	if res.Shared {
		s.logger.Debug("extraction shared", "video_id", id)
	}

	out := *ex.info
	return &out, nil
}

// join registers a caller on the flight for key, starting one if needed.
func (s *ExtractService) join(ctx context.Context, key string) *flight {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		s.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a caller from f. The last caller cancels the flight and makes
// later callers start a fresh extraction; leave reports whether it was last.
func (s *ExtractService) leave(key string, f *flight) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return false
	}
	f.cancel()
	if s.flights[key] == f {
		delete(s.flights, key)
		s.group.Forget(key)
	}
	return true
}

func (s *ExtractService) extract(ctx context.Context, id domain.VideoID) (*extraction, error) {
	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return nil, domain.NewExtractionError(id, "acquire slot", err)
		}
		defer s.slots.Release(1)
	}

	var (
		info       *extractor.Info
		cookieKind string
	)

	err := cookies.Use(ctx, s.cookies, s.logger, func(jar *cookies.Jar) error {
		cookieKind = jar.Kind
		if jar.Empty() {
			s.logger.Debug("extracting without cookies", "video_id", id, "source", s.cookies.Kind())
		}

		var err error
		info, err = s.extractor.Extract(ctx, extractor.Request{
			URL:        id.WatchURL(),
			CookieFile: jar.Path,
		})
		return err
	})
	if err != nil {
		s.logger.Error("extraction failed",
			"video_id", id,
			"extractor", s.extractor.Name(),
			"error", err,
		)
		return nil, domain.NewExtractionError(id, "extract", err)
	}

	download, err := mapInfo(info)
	if err != nil {
		return nil, err
	}
	return &extraction{info: download, cookieKind: cookieKind}, nil
}

// mapInfo applies the response defaults. A missing or unusable media URL
// means the video is unavailable.
func mapInfo(info *extractor.Info) (*domain.DownloadInfo, error) {
	if info == nil || !domain.IsDownloadableURL(info.URL) {
		return nil, domain.ErrExtractionUnavailable
	}

	return &domain.DownloadInfo{
		Title:       orDefault(info.Title, domain.DefaultTitle),
		DownloadURL: info.URL,
		Format:      orDefault(info.Ext, domain.DefaultFormat),
		Resolution:  orDefault(info.Resolution, domain.DefaultResolution),
	}, nil
}

func (s *ExtractService) record(rec domain.HistoryRecord, start time.Time, info *domain.DownloadInfo, err error) {
	if s.history == nil {
		return
	}

	rec.Duration = time.Since(start)
	rec.Outcome = domain.OutcomeOf(err)
	if info != nil {
		rec.Title = info.Title
		rec.Format = info.Format
		rec.Resolution = info.Resolution
	}
	if err != nil {
		var extErr *domain.ExtractionError
		if errors.As(err, &extErr) {
			rec.Message = extErr.Err.Error()
		} else {
			rec.Message = err.Error()
		}
	}
	s.history.Record(rec)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
