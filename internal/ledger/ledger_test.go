package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coinmint/internal/clock"
	"coinmint/internal/model"
	"coinmint/internal/store"
)

func testLedger(t *testing.T) (*Ledger, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	led := New(store.NewMemory(), nil, clk)
	if err := led.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return led, clk
}

func TestGetCreatesStarterAccount(t *testing.T) {
	led, _ := testLedger(t)
	acct, err := led.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.Balance != model.StarterBalance {
		t.Fatalf("starter balance got=%d want=%d", acct.Balance, model.StarterBalance)
	}
	if !led.Exists("alice") {
		t.Fatalf("expected alice to exist after first access")
	}
	if led.Exists("bob") {
		t.Fatalf("bob should not exist yet")
	}
}

func TestMutateRejectsNegativeBalance(t *testing.T) {
	led, _ := testLedger(t)
	_, err := led.Mutate(context.Background(), "alice", func(a *model.Account) error {
		a.Balance = -1
		return nil
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	acct, _ := led.Get(context.Background(), "alice")
	if acct.Balance != model.StarterBalance {
		t.Fatalf("failed mutation must not change balance, got %d", acct.Balance)
	}
}

func TestMutateRejectedErrorLeavesAccountUntouched(t *testing.T) {
	led, _ := testLedger(t)
	boom := errors.New("boom")
	_, err := led.Mutate(context.Background(), "alice", func(a *model.Account) error {
		a.Balance += 500
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error back, got %v", err)
	}
	acct, _ := led.Get(context.Background(), "alice")
	if acct.Balance != model.StarterBalance {
		t.Fatalf("balance changed despite fn error: %d", acct.Balance)
	}
}

func TestConcurrentMutationsLoseNoUpdates(t *testing.T) {
	led, _ := testLedger(t)
	const workers = 32
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := led.Mutate(context.Background(), "alice", func(a *model.Account) error {
					a.Balance++
					return nil
				}); err != nil {
					t.Errorf("mutate: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	acct, _ := led.Get(context.Background(), "alice")
	want := model.StarterBalance + int64(workers*perWorker)
	if acct.Balance != want {
		t.Fatalf("lost updates: got=%d want=%d", acct.Balance, want)
	}
}

func TestTransferConservesTotal(t *testing.T) {
	led, _ := testLedger(t)
	ctx := context.Background()
	if _, err := led.Get(ctx, "alice"); err != nil {
		t.Fatalf("get alice: %v", err)
	}
	if _, err := led.Get(ctx, "bob"); err != nil {
		t.Fatalf("get bob: %v", err)
	}

	if err := led.Transfer(ctx, "alice", "bob", 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	alice, _ := led.Get(ctx, "alice")
	bob, _ := led.Get(ctx, "bob")
	if alice.Balance != model.StarterBalance-400 || bob.Balance != model.StarterBalance+400 {
		t.Fatalf("balances wrong: alice=%d bob=%d", alice.Balance, bob.Balance)
	}
}

func TestTransferValidation(t *testing.T) {
	led, _ := testLedger(t)
	ctx := context.Background()
	if _, err := led.Get(ctx, "alice"); err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := led.Transfer(ctx, "alice", "ghost", 10); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("transfer to missing account: got %v", err)
	}
	if err := led.Transfer(ctx, "alice", "alice", 10); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("self transfer: got %v", err)
	}
	if err := led.Transfer(ctx, "alice", "alice", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}

	if _, err := led.Get(ctx, "bob"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := led.Transfer(ctx, "alice", "bob", model.StarterBalance+1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraft: got %v", err)
	}
}

func TestOpposingTransfersDoNotDeadlock(t *testing.T) {
	led, _ := testLedger(t)
	ctx := context.Background()
	if _, err := led.Get(ctx, "alice"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := led.Get(ctx, "bob"); err != nil {
		t.Fatalf("get: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = led.Transfer(ctx, "alice", "bob", 1)
		}()
		go func() {
			defer wg.Done()
			_ = led.Transfer(ctx, "bob", "alice", 1)
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("opposing transfers deadlocked")
	}

	alice, _ := led.Get(ctx, "alice")
	bob, _ := led.Get(ctx, "bob")
	if alice.Balance+bob.Balance != 2*model.StarterBalance {
		t.Fatalf("coins not conserved: alice=%d bob=%d", alice.Balance, bob.Balance)
	}
}

func TestSnapshotSortedAndDetached(t *testing.T) {
	led, _ := testLedger(t)
	ctx := context.Background()
	for _, id := range []string{"zoe", "alice", "bob"} {
		if _, err := led.Get(ctx, id); err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
	}
	snap := led.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot size got=%d want=3", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].ID > snap[i].ID {
			t.Fatalf("snapshot not sorted: %s before %s", snap[i-1].ID, snap[i].ID)
		}
	}
	snap[0].Balance = 999_999
	fresh, _ := led.Get(ctx, snap[0].ID)
	if fresh.Balance == 999_999 {
		t.Fatalf("snapshot must be a copy")
	}
}

func TestMutateTimestampsUpdate(t *testing.T) {
	led, clk := testLedger(t)
	ctx := context.Background()
	before, _ := led.Get(ctx, "alice")
	clk.Advance(time.Minute)
	after, err := led.Mutate(ctx, "alice", func(a *model.Account) error {
		a.Balance += 10
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("UpdatedAt not advanced: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}
