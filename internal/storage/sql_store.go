package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/nerdneilsfield/inkwash-card/internal/card"
)

// 同时兼容 MySQL 与 SQLite
const createCardsTableSQL = `
CREATE TABLE IF NOT EXISTS cards (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	image LONGTEXT NOT NULL,
	recipient VARCHAR(255) NOT NULL,
	sender VARCHAR(255) NOT NULL,
	greeting TEXT NOT NULL,
	show_sender BOOLEAN NOT NULL,
	template VARCHAR(32) NOT NULL,
	created_at BIGINT NOT NULL,
	expires_at BIGINT NOT NULL DEFAULT 0
);`

var cardColumns = []string{"id", "image", "recipient", "sender", "greeting", "show_sender", "template", "created_at", "expires_at"}

// SQLCardStore stores cards through sqlx with squirrel-built statements. It
// is used for MySQL; the statements also run on SQLite.
type SQLCardStore struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// OpenMySQL connects to MySQL with the usual pool settings.
func OpenMySQL(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}
	db.SetMaxOpenConns(32)
	db.SetMaxIdleConns(16)
	return db, nil
}

// NewSQLCardStore creates the cards table if needed.
func NewSQLCardStore(ctx context.Context, db *sqlx.DB, ttl time.Duration) (*SQLCardStore, error) {
	if _, err := db.ExecContext(ctx, createCardsTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create cards table: %w", err)
	}
	return &SQLCardStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLCardStore) Put(ctx context.Context, rec card.Record) error {
	m := toModel(rec, s.ttl)
	query, args, err := sq.Insert("cards").
		Columns(cardColumns...).
		Values(m.ID, m.Image, m.Recipient, m.Sender, m.Greeting, m.ShowSender, m.Template, m.CreatedAt, m.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return card.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (s *SQLCardStore) Get(ctx context.Context, id string) (card.Record, error) {
	query, args, err := sq.Select(cardColumns...).
		From("cards").
		Where(sq.Eq{"id": id}).
		Where(sq.Or{sq.Eq{"expires_at": 0}, sq.Gt{"expires_at": s.now().UnixMilli()}}).
		ToSql()
	if err != nil {
		return card.Record{}, fmt.Errorf("failed to build select: %w", err)
	}

	var m CardModel
	if err := s.db.GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return card.Record{}, card.ErrNotFound
		}
		return card.Record{}, fmt.Errorf("failed to query card: %w", err)
	}
	return m.toRecord(), nil
}

// isDuplicateKeyError recognizes primary key violations from MySQL (1062)
// and SQLite.
func isDuplicateKeyError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
