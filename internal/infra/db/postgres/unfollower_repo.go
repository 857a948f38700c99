package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/samber/lo"

	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/repository"
)

var _ repository.UnfollowerRepository = (*PostgresUnfollowerRepo)(nil)

type PostgresUnfollowerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUnfollowerRepo(pool *pgxpool.Pool) *PostgresUnfollowerRepo {
	return &PostgresUnfollowerRepo{pool: pool}
}

func (r *PostgresUnfollowerRepo) ListByAccount(ctx context.Context, tx repository.Tx, account model.AccountID) ([]model.AccountID, error) {
	const q = `SELECT unfollower_id FROM unfollowers WHERE account_id=$1 ORDER BY unfollower_id;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, int64(account))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []model.AccountID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, model.AccountID(id))
	}
	return ids, rows.Err()
}

func (r *PostgresUnfollowerRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, account model.AccountID) error {
	const q = `DELETE FROM unfollowers WHERE account_id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, int64(account))
	return err
}

// InsertMany adds all ids in one statement; duplicates are ignored.
func (r *PostgresUnfollowerRepo) InsertMany(ctx context.Context, tx repository.Tx, account model.AccountID, ids []model.AccountID) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `
INSERT INTO unfollowers (account_id, unfollower_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	raw := lo.Map(ids, func(id model.AccountID, _ int) int64 { return int64(id) })
	_, err = ex.Exec(ctx, q, int64(account), raw)
	return err
}
