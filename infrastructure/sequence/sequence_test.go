package sequence

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/uptrace/bun"

	"storedesk/infrastructure/sqlite"
)

func openSequenceTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sequence-test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func allocate(t *testing.T, db *sqlite.DB, kind Kind) int64 {
	t.Helper()
	var got int64
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		n, err := Allocate(ctx, tx, kind)
		got = n
		return err
	})
	if err != nil {
		t.Fatalf("allocate %s: %v", kind, err)
	}
	return got
}

func TestAllocateStartsAtOneAndIncrements(t *testing.T) {
	db := openSequenceTestDB(t)

	for want := int64(1); want <= 3; want++ {
		if got := allocate(t, db, KindPO); got != want {
			t.Fatalf("expected PO number %d, got %d", want, got)
		}
	}
	// Barcode counter advances independently of the PO counter.
	if got := allocate(t, db, KindBarcode); got != 1 {
		t.Fatalf("expected first barcode number 1, got %d", got)
	}
	if got := allocate(t, db, KindPO); got != 4 {
		t.Fatalf("expected PO number 4 after barcode allocation, got %d", got)
	}
}

func TestPeekDoesNotIncrement(t *testing.T) {
	db := openSequenceTestDB(t)

	next, err := Peek(context.Background(), db, KindPO)
	if err != nil {
		t.Fatalf("peek before first allocation: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected peek 1 on empty counter, got %d", next)
	}

	allocate(t, db, KindPO)
	allocate(t, db, KindPO)

	next, err = Peek(context.Background(), db, KindPO)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if next != 3 {
		t.Fatalf("expected peek 3 after two allocations, got %d", next)
	}
	again, err := Peek(context.Background(), db, KindPO)
	if err != nil {
		t.Fatalf("peek again: %v", err)
	}
	if again != next {
		t.Fatalf("peek advanced the counter: %d then %d", next, again)
	}
}

func TestAllocateConcurrentCallersGetDistinctNumbers(t *testing.T) {
	db := openSequenceTestDB(t)

	const callers = 20
	results := make(chan int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n int64
			err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
				var err error
				n, err = Allocate(ctx, tx, KindPO)
				return err
			})
			if err != nil {
				t.Errorf("concurrent allocate: %v", err)
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool, callers)
	for n := range results {
		if seen[n] {
			t.Fatalf("duplicate allocation %d", n)
		}
		seen[n] = true
	}
	if len(seen) != callers {
		t.Fatalf("expected %d distinct allocations, got %d", callers, len(seen))
	}
}

func TestAllocateUnknownKind(t *testing.T) {
	db := openSequenceTestDB(t)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := Allocate(ctx, tx, Kind("invoice"))
		return err
	})
	if err == nil {
		t.Fatalf("expected error for unknown counter kind")
	}
}
