package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"property-tour/internal/tour/models"
)

// ============================================================
// SQLite Repository
// ============================================================

var ErrNotFound = errors.New("property not found")

const timeLayout = "2006-01-02T15:04:05Z"

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Init запускает миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	if err := r.runMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create сохраняет новый документ целиком.
func (r *Repository) Create(ctx context.Context, p *models.Property) error {
	rooms, err := encodeRooms(p.Rooms)
	if err != nil {
		return err
	}
	ts := r.now().UTC().Format(timeLayout)

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO properties (id, title, property_type, entry_room_id, rooms_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, p.ID, p.Title, string(p.PropertyType), p.EntryRoomID, rooms, ts, ts)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = ts, ts
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, title, property_type, entry_room_id, rooms_json, created_at, updated_at
        FROM properties
        WHERE id = ?
    `, id)

	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// Replace перезаписывает документ целиком: список комнат никогда не патчится.
func (r *Repository) Replace(ctx context.Context, p *models.Property) error {
	rooms, err := encodeRooms(p.Rooms)
	if err != nil {
		return err
	}
	ts := r.now().UTC().Format(timeLayout)

	res, err := r.db.ExecContext(ctx, `
        UPDATE properties
        SET title = ?, property_type = ?, entry_room_id = ?, rooms_json = ?, updated_at = ?
        WHERE id = ?
    `, p.Title, string(p.PropertyType), p.EntryRoomID, rooms, ts, p.ID)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
	}
	p.UpdatedAt = ts
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List возвращает документы, последние измененные первыми.
func (r *Repository) List(ctx context.Context) ([]models.Property, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, title, property_type, entry_room_id, rooms_json, created_at, updated_at
        FROM properties
        ORDER BY updated_at DESC, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	out := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(s scanner) (*models.Property, error) {
	var (
		p        models.Property
		propType string
		rooms    string
	)
	if err := s.Scan(&p.ID, &p.Title, &propType, &p.EntryRoomID, &rooms, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PropertyType = models.PropertyType(propType)
	if err := json.Unmarshal([]byte(rooms), &p.Rooms); err != nil {
		return nil, fmt.Errorf("decode rooms of %s: %w", p.ID, err)
	}
	if p.Rooms == nil {
		p.Rooms = []models.Room{}
	}
	return &p, nil
}

func encodeRooms(rooms []models.Room) (string, error) {
	if rooms == nil {
		rooms = []models.Room{}
	}
	data, err := json.Marshal(rooms)
	if err != nil {
		return "", fmt.Errorf("encode rooms: %w", err)
	}
	return string(data), nil
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
