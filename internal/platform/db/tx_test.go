package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

// fakeTx satisfies pgx.Tx. Begin hands out savepoints that record how they
// were finished; every other method is unused.
type fakeTx struct {
	pgx.Tx
	savepoints []*fakeTx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	sp := &fakeTx{}
	f.savepoints = append(f.savepoints, sp)
	return sp, nil
}

func (f *fakeTx) Commit(context.Context) error {
	if f.rolledBack {
		return pgx.ErrTxClosed
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed || f.rolledBack {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestRunInTx_NoPool(t *testing.T) {
	err := RunInTx(context.Background(), nil, func(ctx context.Context) error {
		t.Fatal("fn must not run without a connection")
		return nil
	})
	if err == nil {
		t.Fatal("expected error without a pool")
	}
}

func TestRunInTx_NestedErrorRollsBackSavepointOnly(t *testing.T) {
	outer := &fakeTx{}
	ctx := ContextWithTx(context.Background(), outer)
	sentinel := errors.New("boom")

	err := RunInTx(ctx, nil, func(inner context.Context) error {
		if tx := TxFromContext(inner); tx == nil || tx == pgx.Tx(outer) {
			t.Error("expected fn to run on a savepoint of the outer tx")
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if len(outer.savepoints) != 1 {
		t.Fatalf("expected one savepoint, got %d", len(outer.savepoints))
	}
	if sp := outer.savepoints[0]; !sp.rolledBack || sp.committed {
		t.Errorf("savepoint: rolledBack=%v committed=%v", sp.rolledBack, sp.committed)
	}
	if outer.rolledBack || outer.committed {
		t.Error("outer transaction must be left to its owner")
	}
}

func TestRunInTx_NestedSuccessReleasesSavepoint(t *testing.T) {
	outer := &fakeTx{}
	ctx := ContextWithTx(context.Background(), outer)

	if err := RunInTx(ctx, nil, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp := outer.savepoints[0]; !sp.committed {
		t.Error("expected savepoint to be released")
	}
}

func TestDefer_RunsImmediatelyWithoutQueue(t *testing.T) {
	ran := false
	Defer(context.Background(), func(context.Context) { ran = true })
	if !ran {
		t.Error("expected fn to run immediately")
	}
}

func TestAfterCommit_QueuesUntilRun(t *testing.T) {
	ctx, after := WithAfterCommit(context.Background())
	var order []int
	Defer(ctx, func(context.Context) { order = append(order, 1) })
	Defer(ctx, func(context.Context) { order = append(order, 2) })
	if len(order) != 0 || after.Len() != 2 {
		t.Fatalf("expected two queued functions, ran %v", order)
	}

	after.Run(context.Background())
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected queued functions in order, got %v", order)
	}

	Defer(ctx, func(context.Context) { order = append(order, 3) })
	if len(order) != 3 {
		t.Error("expected Defer after Run to execute immediately")
	}
}

func TestSchemaPattern(t *testing.T) {
	valid := []string{"public", "pflege", "tenant_1", "_x"}
	invalid := []string{"", "1abc", "drop table;", "a-b", "a.b"}
	for _, s := range valid {
		if !schemaPattern.MatchString(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range invalid {
		if schemaPattern.MatchString(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestTxRunner_NoPool(t *testing.T) {
	err := NewTxRunner(nil).InTx(context.Background(), func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error without a pool")
	}
}
