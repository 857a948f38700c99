package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/repository"
)

var _ repository.SubscriberRepository = (*PostgresSubscriberRepo)(nil)

type PostgresSubscriberRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSubscriberRepo(pool *pgxpool.Pool) *PostgresSubscriberRepo {
	return &PostgresSubscriberRepo{pool: pool}
}

func (r *PostgresSubscriberRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Subscriber, error) {
	const q = `
SELECT telegram_id, instagram_id, is_notified, language, created_at, updated_at
  FROM subscribers WHERE telegram_id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}

	var (
		s       model.Subscriber
		account sql.NullInt64
		lang    sql.NullString
	)
	err = ex.QueryRow(ctx, q, tgID).Scan(&s.TelegramID, &account, &s.IsNotified, &lang, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if account.Valid {
		id := model.AccountID(account.Int64)
		s.LinkedAccount = &id
	}
	s.Language = lang.String
	return &s, nil
}

func (r *PostgresSubscriberRepo) UpsertLinkedAccount(ctx context.Context, tx repository.Tx, tgID int64, account model.AccountID) error {
	const q = `
INSERT INTO subscribers (telegram_id, instagram_id, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET
  instagram_id = EXCLUDED.instagram_id,
  updated_at   = NOW();`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, tgID, int64(account))
	return err
}

func (r *PostgresSubscriberRepo) SetNotified(ctx context.Context, tx repository.Tx, tgID int64, on bool) error {
	const q = `UPDATE subscribers SET is_notified=$2, updated_at=NOW() WHERE telegram_id=$1;`
	return r.update(ctx, tx, q, tgID, on)
}

func (r *PostgresSubscriberRepo) SetLanguage(ctx context.Context, tx repository.Tx, tgID int64, lang string) error {
	const q = `UPDATE subscribers SET language=NULLIF($2, ''), updated_at=NOW() WHERE telegram_id=$1;`
	return r.update(ctx, tx, q, tgID, lang)
}

func (r *PostgresSubscriberRepo) update(ctx context.Context, tx repository.Tx, q string, args ...interface{}) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresSubscriberRepo) ListNotifiedIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	const q = `SELECT telegram_id FROM subscribers WHERE is_notified ORDER BY telegram_id;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresSubscriberRepo) CountSubscribers(ctx context.Context, tx repository.Tx) (int, int, error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_notified) FROM subscribers;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, 0, err
	}
	var total, notified int
	if err := ex.QueryRow(ctx, q).Scan(&total, &notified); err != nil {
		return 0, 0, err
	}
	return total, notified, nil
}
