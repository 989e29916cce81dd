package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/alanpentz/course-platform/internal/data/aggregates"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
)

// InjectedTxRunner is a test helper for aggregate integration tests.
//
// Without DB the body runs with no transaction. With DB the body runs inside a
// real gorm transaction and FailCommit aborts it, so writes made by the body
// are rolled back the same way a failed commit would.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	db := r.DB
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.incRollback()
		return failBeforeBody
	}
	if fn == nil {
		r.incCommit()
		return nil
	}

	run := func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		return failCommit
	}

	var err error
	if db != nil {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return run(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	} else {
		err = run(dbctx.Context{Ctx: ctx})
	}
	if err != nil {
		r.incRollback()
		return err
	}
	r.incCommit()
	return nil
}

func (r *InjectedTxRunner) incCommit() {
	r.mu.Lock()
	r.CommitCalls++
	r.mu.Unlock()
}

func (r *InjectedTxRunner) incRollback() {
	r.mu.Lock()
	r.RollbackCalls++
	r.mu.Unlock()
}
