package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories accept a nil Tx and then run on the pool.
type Tx interface{}

var NoTX Tx

// TransactionManager executes fn within a single database transaction and
// passes the handle on so that every repository call in fn shares it.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		if err := unfollowers.DeleteByAccount(ctx, tx, id); err != nil {
//			return err
//		}
//		return unfollowers.InsertMany(ctx, tx, id, ids)
//	})
//
// fn returning an error rolls the transaction back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

type commitHooksKey struct{}

// CommitHooks collects callbacks that must run only once a transaction has
// committed, such as cache invalidation. A TransactionManager attaches a
// fresh set to the ctx of every attempt and discards it on rollback.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// WithCommitHooks returns ctx carrying an empty hook set.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	h := &CommitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, h), h
}

// AfterCommit schedules fn on the transaction carried by ctx. It reports
// false when ctx belongs to no transaction; the caller then runs fn itself.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) bool {
	h, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok || h == nil {
		return false
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
	return true
}

// Run invokes the hooks in registration order.
func (h *CommitHooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
