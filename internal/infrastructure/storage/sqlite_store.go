package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// SQLiteStore хранит учётные записи и историю анализов в SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore открывает базу и создаёт таблицы при первом запуске
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Одно соединение: запись в SQLite всё равно последовательная,
	// а :memory: у каждого соединения своя.
	db.SetMaxOpenConns(1)

	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("path", dbPath).Msg("failed to chmod database file")
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	usersQuery := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(usersQuery); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	analysesQuery := `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		per_user_index INTEGER NOT NULL,
		image_filename TEXT,
		image_base64 TEXT,
		model_used TEXT,
		confidence REAL,
		total_detections INTEGER NOT NULL DEFAULT 0,
		caries_count INTEGER NOT NULL DEFAULT 0,
		diente_retenido_count INTEGER NOT NULL DEFAULT 0,
		perdida_osea_count INTEGER NOT NULL DEFAULT 0,
		results_json TEXT,
		teeth_fdi_json TEXT,
		report_text TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, per_user_index)
	);
	`
	if _, err := s.db.Exec(analysesQuery); err != nil {
		return fmt.Errorf("failed to create analyses table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_analyses_user ON analyses(user_id, created_at)"); err != nil {
		return fmt.Errorf("failed to create analyses index: %w", err)
	}

	return nil
}

// Close закрывает соединение с базой
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser сохраняет пользователя. Повторный email даёт port.ErrAlreadyExists.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, is_active, created_at) VALUES (?, ?, ?, ?, ?)",
		user.Email, user.PasswordHash, user.Name, user.IsActive, user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("user %s: %w", user.Email, port.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id
	return nil
}

// UserByEmail ищет пользователя по email. Возвращает nil, nil если не найден.
func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.queryUser(ctx, "email = ?", email)
}

// UserByID ищет пользователя по ID. Возвращает nil, nil если не найден.
func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (*entity.User, error) {
	return s.queryUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) queryUser(ctx context.Context, where string, arg any) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u entity.User
	var name sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, name, is_active, created_at FROM users WHERE "+where,
		arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &name, &u.IsActive, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	u.Name = name.String
	return &u, nil
}

// SaveAnalysis назначает записи следующий номер внутри аккаунта и сохраняет её
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec *entity.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(per_user_index), 0) + 1 FROM analyses WHERE user_id = ?",
		rec.UserID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to compute per-user index: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO analyses (
			user_id, per_user_index, image_filename, image_base64, model_used, confidence,
			total_detections, caries_count, diente_retenido_count, perdida_osea_count,
			results_json, teeth_fdi_json, report_text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.UserID, next, rec.ImageFilename, nullIfEmpty(rec.ImageBase64), rec.ModelUsed, rec.Confidence,
		rec.TotalDetections, rec.CariesCount, rec.ImpactedCount, rec.BoneLossCount,
		rec.ResultsJSON, rec.TeethFDIJSON, rec.ReportText, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read analysis id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}

	rec.ID = id
	rec.PerUserIndex = next
	return nil
}

// ListAnalyses возвращает анализы пользователя, новые первыми
func (s *SQLiteStore) ListAnalyses(ctx context.Context, userID int64) ([]entity.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, per_user_index, image_filename, image_base64, model_used, confidence,
			total_detections, caries_count, diente_retenido_count, perdida_osea_count,
			results_json, teeth_fdi_json, report_text, created_at
		FROM analyses
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	records := []entity.HistoryRecord{}
	for rows.Next() {
		var r entity.HistoryRecord
		var filename, image, model, results, teeth, report sql.NullString
		var confidence sql.NullFloat64

		if err := rows.Scan(
			&r.ID, &r.UserID, &r.PerUserIndex, &filename, &image, &model, &confidence,
			&r.TotalDetections, &r.CariesCount, &r.ImpactedCount, &r.BoneLossCount,
			&results, &teeth, &report, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}

		r.ImageFilename = filename.String
		r.ImageBase64 = image.String
		r.ModelUsed = model.String
		r.Confidence = confidence.Float64
		r.ResultsJSON = results.String
		r.TeethFDIJSON = teeth.String
		r.ReportText = report.String
		records = append(records, r)
	}

	return records, rows.Err()
}

// DeleteAnalysis удаляет анализ, только если он принадлежит пользователю
func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, userID, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete analysis: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var (
	_ port.UserRepository    = (*SQLiteStore)(nil)
	_ port.HistoryRepository = (*SQLiteStore)(nil)
)
