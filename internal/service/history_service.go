package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sbsidd17/yt-dl-api/internal/domain"
)

// HistoryServiceConfig configures the history service.
type HistoryServiceConfig struct {
	// RingBufferSize is the number of records kept in memory.
	// Default: 200
	RingBufferSize int

	// SQLitePath enables persistence when set.
	SQLitePath string

	// RetentionDays is how long to keep records in SQLite (0 = forever).
	RetentionDays int
}

// HistoryService keeps recent resolutions in a ring buffer with optional
// SQLite persistence.
type HistoryService struct {
	cfg    HistoryServiceConfig
	logger *slog.Logger

	mu      sync.RWMutex
	records []domain.HistoryRecord
	head    int // Next write position
	count   int

	db *sql.DB
}

// NewHistoryService creates a new history service.
func NewHistoryService(cfg HistoryServiceConfig, logger *slog.Logger) (*HistoryService, error) {
	if cfg.RingBufferSize <= 0 {
		cfg.RingBufferSize = 200
	}

	svc := &HistoryService{
		cfg:     cfg,
		logger:  logger,
		records: make([]domain.HistoryRecord, cfg.RingBufferSize),
	}

	if cfg.SQLitePath != "" {
		if err := svc.initSQLite(); err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		logger.Info("history persistence enabled", "path", cfg.SQLitePath)
	}

	return svc, nil
}

func (s *HistoryService) initSQLite() error {
	db, err := sql.Open("sqlite", sqliteDSN(s.cfg.SQLitePath))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// Every Resolve records synchronously; SQLite allows one writer, so
	// writes queue on a single connection instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			video_id TEXT,
			outcome TEXT NOT NULL,
			title TEXT,
			format TEXT,
			resolution TEXT,
			message TEXT,
			cookies TEXT,
			duration_ns INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp);
		CREATE INDEX IF NOT EXISTS idx_history_video_id ON history(video_id);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("create table: %w", err)
	}

	s.db = db
	return nil
}

// sqliteDSN adds the busy timeout and WAL journal pragmas unless the path
// already carries its own query.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the history service and any open resources.
func (s *HistoryService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a resolution record.
func (s *HistoryService) Record(rec domain.HistoryRecord) {
	if rec.ID == "" {
		rec.ID = domain.RecordID(uuid.NewString())
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.records[s.head] = rec
	s.head = (s.head + 1) % s.cfg.RingBufferSize
	if s.count < s.cfg.RingBufferSize {
		s.count++
	}
	s.mu.Unlock()

	if s.db != nil {
		s.persist(rec)
	}
}

func (s *HistoryService) persist(rec domain.HistoryRecord) {
	_, err := s.db.Exec(`
		INSERT INTO history (id, timestamp, video_id, outcome, title, format, resolution, message, cookies, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Timestamp.UnixNano(), rec.VideoID, rec.Outcome, rec.Title, rec.Format,
		rec.Resolution, rec.Message, rec.Cookies, int64(rec.Duration))

	if err != nil {
		s.logger.Warn("failed to persist history record", "record_id", rec.ID, "error", err)
	}
}

// Recent returns matching records from memory, newest first.
func (s *HistoryService) Recent(filter domain.HistoryFilter) []domain.HistoryRecord {
	limit := clampLimit(filter.Limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.HistoryRecord, 0, min(limit, s.count))
	for i := 0; i < s.count && len(result) < limit; i++ {
		idx := (s.head - 1 - i + s.cfg.RingBufferSize) % s.cfg.RingBufferSize
		rec := s.records[idx]
		if matchesHistoryFilter(rec, filter) {
			result = append(result, rec)
		}
	}
	return result
}

// Query returns matching records, newest first, from SQLite when enabled
// and from memory otherwise.
func (s *HistoryService) Query(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	if s.db == nil {
		return s.Recent(filter), nil
	}

	var conditions []string
	var args []interface{}
	if filter.VideoID != "" {
		conditions = append(conditions, "video_id = ?")
		args = append(args, filter.VideoID)
	}
	if filter.Outcome != nil {
		conditions = append(conditions, "outcome = ?")
		args = append(args, *filter.Outcome)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := clampLimit(filter.Limit)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, timestamp, video_id, outcome, title, format, resolution, message, cookies, duration_ns
		FROM history %s
		ORDER BY timestamp DESC
		LIMIT ?
	`, whereClause), args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.HistoryRecord, 0, limit)
	for rows.Next() {
		var (
			rec                                           domain.HistoryRecord
			ts, dur                                       int64
			videoID, title, format, res, message, cookies sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &videoID, &rec.Outcome, &title, &format, &res, &message, &cookies, &dur); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts)
		rec.Duration = time.Duration(dur)
		rec.VideoID = domain.VideoID(videoID.String)
		rec.Title = title.String
		rec.Format = format.String
		rec.Resolution = res.String
		rec.Message = message.String
		rec.Cookies = cookies.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping checks the persistence layer, if any.
func (s *HistoryService) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Persistent reports whether records are written to SQLite.
func (s *HistoryService) Persistent() bool {
	return s.db != nil
}

// CleanupOldRecords removes records older than the retention period.
func (s *HistoryService) CleanupOldRecords(ctx context.Context) error {
	if s.db == nil || s.cfg.RetentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE timestamp < ?", cutoff.UnixNano())
	if err != nil {
		return fmt.Errorf("delete old records: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		s.logger.Info("cleaned up old history", "deleted", deleted, "cutoff", cutoff)
	}
	return nil
}

// RunCleanup prunes old records every interval until ctx is done.
func (s *HistoryService) RunCleanup(ctx context.Context, interval time.Duration) {
	if s.db == nil || s.cfg.RetentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.CleanupOldRecords(ctx); err != nil {
			s.logger.Warn("history cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func matchesHistoryFilter(rec domain.HistoryRecord, filter domain.HistoryFilter) bool {
	if filter.VideoID != "" && rec.VideoID != filter.VideoID {
		return false
	}
	if filter.Outcome != nil && rec.Outcome != *filter.Outcome {
		return false
	}
	return true
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
