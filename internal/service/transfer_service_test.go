package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"securebank/internal/infrastructure/lock"
	"securebank/internal/model"
	"securebank/internal/repository"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory AccountStore/UnitOfWork used to exercise the
// transfer engine without a database. Do stages balance changes and ledger
// appends and applies them atomically on success, discarding everything on
// error, which mirrors the rollback behavior of the real storage. The
// failDebit/failCredit/failAppend switches inject storage faults at each
// step of the unit of work.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
	byIBAN   map[string]int64
	journal  []*model.Transaction

	failDebit  bool
	failCredit bool
	failAppend bool
}

func newMemStore(accounts ...*model.Account) *memStore {
	s := &memStore{
		accounts: make(map[int64]*model.Account),
		byIBAN:   make(map[string]int64),
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
		s.byIBAN[a.IBAN] = a.ID
	}
	return s
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *memStore) GetByIBAN(ctx context.Context, iban string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIBAN[iban]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *s.accounts[id]
	return &copied, nil
}

func (s *memStore) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, repository.ErrAccountNotFound
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, repository.ErrInsufficientBalance
	}
	a.Balance = next
	return next, nil
}

func (s *memStore) Do(ctx context.Context, fn func(accounts AccountStore, ledger Ledger) error) error {
	tx := &memTx{s: s, staged: make(map[int64]decimal.Decimal)}
	if err := fn(tx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, balance := range tx.staged {
		s.accounts[id].Balance = balance
	}
	s.journal = append(s.journal, tx.appended...)
	return nil
}

func (s *memStore) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		t.Fatalf("account %d not found", id)
	}
	return a.Balance
}

func (s *memStore) total(ids ...int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, id := range ids {
		total = total.Add(s.accounts[id].Balance)
	}
	return total
}

func (s *memStore) entries() []*model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Transaction(nil), s.journal...)
}

// memTx is the transactional view the engine sees inside Do.
type memTx struct {
	s        *memStore
	staged   map[int64]decimal.Decimal
	appended []*model.Transaction
}

func (tx *memTx) current(id int64) (decimal.Decimal, bool) {
	if b, ok := tx.staged[id]; ok {
		return b, true
	}
	a, ok := tx.s.accounts[id]
	if !ok {
		return decimal.Zero, false
	}
	return a.Balance, true
}

func (tx *memTx) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	a, ok := tx.s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *a
	if b, ok := tx.staged[id]; ok {
		copied.Balance = b
	}
	return &copied, nil
}

func (tx *memTx) GetByIBAN(ctx context.Context, iban string) (*model.Account, error) {
	tx.s.mu.Lock()
	id, ok := tx.s.byIBAN[iban]
	tx.s.mu.Unlock()
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return tx.GetByID(ctx, id)
}

func (tx *memTx) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if delta.IsNegative() && tx.s.failDebit {
		return decimal.Zero, errors.New("injected debit fault")
	}
	if delta.IsPositive() && tx.s.failCredit {
		return decimal.Zero, errors.New("injected credit fault")
	}
	current, ok := tx.current(id)
	if !ok {
		return decimal.Zero, repository.ErrAccountNotFound
	}
	next := current.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, repository.ErrInsufficientBalance
	}
	tx.staged[id] = next
	return next, nil
}

func (tx *memTx) Append(ctx context.Context, txn *model.Transaction) error {
	if tx.s.failAppend {
		return errors.New("injected append fault")
	}
	tx.appended = append(tx.appended, txn)
	return nil
}

// recordingNotifier captures emitted events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []emitted
}

type emitted struct {
	ownerID int64
	event   Event
}

func (n *recordingNotifier) Emit(ownerID int64, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{ownerID: ownerID, event: event})
}

func (n *recordingNotifier) all() []emitted {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]emitted(nil), n.events...)
}

func money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func account(id, ownerID int64, iban, balance string) *model.Account {
	b, _ := decimal.NewFromString(balance)
	return &model.Account{
		ID:      id,
		UserID:  ownerID,
		IBAN:    iban,
		Balance: b,
		Status:  model.AccountStatusActive,
	}
}

func newEngine(store *memStore, notifier Notifier, timeout time.Duration) (*TransferService, *lock.AccountLocks) {
	locks := lock.NewAccountLocks()
	return NewTransferService(store, store, locks, notifier, timeout), locks
}

func TestTransferMovesFunds(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 20, "FR7630004000010000000000202", "500.00"),
	)
	notifier := &recordingNotifier{}
	engine, _ := newEngine(store, notifier, time.Second)

	result, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "250.00"), "rent")
	if err != nil {
		t.Fatalf("Transfer err=%v", err)
	}

	if !result.NewBalance.Equal(money(t, "750.00")) {
		t.Fatalf("new balance=%s want=750.00", result.NewBalance)
	}
	if got := store.balance(t, 1); !got.Equal(money(t, "750.00")) {
		t.Fatalf("source balance=%s want=750.00", got)
	}
	if got := store.balance(t, 2); !got.Equal(money(t, "750.00")) {
		t.Fatalf("dest balance=%s want=750.00", got)
	}

	entries := store.entries()
	if len(entries) != 1 {
		t.Fatalf("journal entries=%d want=1", len(entries))
	}
	entry := entries[0]
	if entry.SourceAccountID != 1 || entry.DestAccountID == nil || *entry.DestAccountID != 2 {
		t.Fatalf("entry accounts: source=%d dest=%v", entry.SourceAccountID, entry.DestAccountID)
	}
	if entry.Kind != model.TransactionKindTransfer || entry.Status != model.TransactionStatusCompleted {
		t.Fatalf("entry kind=%s status=%s", entry.Kind, entry.Status)
	}
	if !entry.BalanceBefore.Equal(money(t, "1000.00")) || !entry.BalanceAfter.Equal(money(t, "750.00")) {
		t.Fatalf("entry before=%s after=%s", entry.BalanceBefore, entry.BalanceAfter)
	}
	if entry.Memo != "rent" {
		t.Fatalf("entry memo=%q", entry.Memo)
	}

	events := notifier.all()
	if len(events) != 2 {
		t.Fatalf("events=%d want=2", len(events))
	}
	if events[0].ownerID != 10 || events[0].event.Type != EventTransferCompleted {
		t.Fatalf("first event=%+v", events[0])
	}
	if events[1].ownerID != 20 || events[1].event.Type != EventTransferReceived {
		t.Fatalf("second event=%+v", events[1])
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "100.00"),
		account(2, 20, "FR7630004000010000000000202", "500.00"),
	)
	notifier := &recordingNotifier{}
	engine, _ := newEngine(store, notifier, time.Second)

	_, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "150.00"), "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	if got := store.balance(t, 1); !got.Equal(money(t, "100.00")) {
		t.Fatalf("source balance=%s want=100.00", got)
	}
	if got := store.balance(t, 2); !got.Equal(money(t, "500.00")) {
		t.Fatalf("dest balance=%s want=500.00", got)
	}
	if entries := store.entries(); len(entries) != 0 {
		t.Fatalf("journal entries=%d want=0", len(entries))
	}
	if events := notifier.all(); len(events) != 0 {
		t.Fatalf("events=%d want=0", len(events))
	}
}

func TestTransferInvalidAmount(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 20, "FR7630004000010000000000202", "0.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, time.Second)

	for _, amount := range []string{"0", "-5.00", "10.005", "0.001"} {
		_, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, amount), "")
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount=%s: want ErrInvalidAmount, got %v", amount, err)
		}
	}

	if got := store.balance(t, 1); !got.Equal(money(t, "1000.00")) {
		t.Fatalf("source balance=%s want=1000.00", got)
	}
}

func TestTransferSourceChecks(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 20, "FR7630004000010000000000202", "500.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, time.Second)
	ctx := context.Background()
	amount := money(t, "10.00")

	// missing source account
	if _, err := engine.Transfer(ctx, 10, 99, "FR7630004000010000000000202", amount, ""); !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("missing source: want ErrSourceNotFound, got %v", err)
	}

	// account owned by someone else must be indistinguishable from a
	// missing one
	if _, err := engine.Transfer(ctx, 10, 2, "FR7630004000010000000000101", amount, ""); !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("foreign source: want ErrSourceNotFound, got %v", err)
	}
}

func TestTransferBlockedSource(t *testing.T) {
	blocked := account(1, 10, "FR7630004000010000000000101", "1000.00")
	blocked.Status = model.AccountStatusBlocked
	store := newMemStore(
		blocked,
		account(2, 20, "FR7630004000010000000000202", "500.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, time.Second)

	_, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "10.00"), "")
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("want ErrAccountBlocked, got %v", err)
	}
}

func TestTransferDestinationNotFound(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, time.Second)

	_, err := engine.Transfer(context.Background(), 10, 1, "FR7699999999999999999999999", money(t, "10.00"), "")
	if !errors.Is(err, ErrDestinationNotFound) {
		t.Fatalf("want ErrDestinationNotFound, got %v", err)
	}
}

func TestTransferSameAccount(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, time.Second)

	_, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000101", money(t, "10.00"), "")
	if !errors.Is(err, ErrSameAccount) {
		t.Fatalf("want ErrSameAccount, got %v", err)
	}
	if got := store.balance(t, 1); !got.Equal(money(t, "1000.00")) {
		t.Fatalf("balance=%s want=1000.00", got)
	}
}

func TestTransferNormalizesIBAN(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 20, "FR7630004000010000000000202", "0.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, time.Second)

	// grouped, lower-cased input must route to the same account
	_, err := engine.Transfer(context.Background(), 10, 1, "fr76 3000 4000 0100 0000 0000 202", money(t, "10.00"), "")
	if err != nil {
		t.Fatalf("Transfer err=%v", err)
	}
	if got := store.balance(t, 2); !got.Equal(money(t, "10.00")) {
		t.Fatalf("dest balance=%s want=10.00", got)
	}
}

func TestTransferSameOwnerSingleEvent(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 10, "FR7630004000010000000000202", "0.00"),
	)
	notifier := &recordingNotifier{}
	engine, _ := newEngine(store, notifier, time.Second)

	if _, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "500.00"), "savings"); err != nil {
		t.Fatalf("Transfer err=%v", err)
	}

	events := notifier.all()
	if len(events) != 1 || events[0].event.Type != EventTransferCompleted {
		t.Fatalf("events=%+v want single transfer_completed", events)
	}
}

func TestTransferFaultAtomicity(t *testing.T) {
	cases := []struct {
		name string
		set  func(s *memStore)
	}{
		{"fault on debit", func(s *memStore) { s.failDebit = true }},
		{"fault on credit", func(s *memStore) { s.failCredit = true }},
		{"fault on ledger append", func(s *memStore) { s.failAppend = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore(
				account(1, 10, "FR7630004000010000000000101", "1000.00"),
				account(2, 20, "FR7630004000010000000000202", "500.00"),
			)
			tc.set(store)
			notifier := &recordingNotifier{}
			engine, _ := newEngine(store, notifier, time.Second)

			_, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "250.00"), "")
			if !errors.Is(err, ErrStorageFault) {
				t.Fatalf("want ErrStorageFault, got %v", err)
			}

			// neither side of the transfer may be visible
			if got := store.balance(t, 1); !got.Equal(money(t, "1000.00")) {
				t.Fatalf("source balance=%s want=1000.00", got)
			}
			if got := store.balance(t, 2); !got.Equal(money(t, "500.00")) {
				t.Fatalf("dest balance=%s want=500.00", got)
			}
			if entries := store.entries(); len(entries) != 0 {
				t.Fatalf("journal entries=%d want=0", len(entries))
			}
			if events := notifier.all(); len(events) != 0 {
				t.Fatalf("events=%d want=0", len(events))
			}
		})
	}
}

func TestTransferBusyOnLockTimeout(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 20, "FR7630004000010000000000202", "500.00"),
	)
	engine, locks := newEngine(store, &recordingNotifier{}, 50*time.Millisecond)

	// hold the source account's lock so the transfer cannot get it
	unlock, err := locks.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lock err=%v", err)
	}
	defer unlock()

	_, err = engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "10.00"), "")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	if got := store.balance(t, 1); !got.Equal(money(t, "1000.00")) {
		t.Fatalf("source balance=%s want=1000.00", got)
	}
}

func TestTransferCancelledCallerIsNotBusy(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 20, "FR7630004000010000000000202", "500.00"),
	)
	engine, locks := newEngine(store, &recordingNotifier{}, time.Second)

	// contend the source lock so the transfer blocks on it
	unlock, err := locks.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lock err=%v", err)
	}
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Transfer(ctx, 10, 1, "FR7630004000010000000000202", money(t, "10.00"), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrBusy) {
		t.Fatalf("caller cancellation must not be reported as busy")
	}
	if got := store.balance(t, 1); !got.Equal(money(t, "1000.00")) {
		t.Fatalf("source balance=%s want=1000.00", got)
	}
}

// TestTransferConcurrentDrain checks there are no lost updates and no
// overdraft: with balance 100 and 25 concurrent transfers of 10 each,
// exactly 10 must succeed and the source must land exactly on zero.
func TestTransferConcurrentDrain(t *testing.T) {
	const workers = 25
	source := account(1, 10, "FR7630004000010000000000101", "100.00")
	accounts := []*model.Account{source}
	for i := 0; i < workers; i++ {
		accounts = append(accounts, account(int64(100+i), int64(200+i),
			fmt.Sprintf("FR76300040000100000000%05d", i), "0.00"))
	}
	store := newMemStore(accounts...)
	engine, _ := newEngine(store, &recordingNotifier{}, 5*time.Second)

	totalBefore := decimal.Zero
	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
		totalBefore = totalBefore.Add(a.Balance)
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Transfer(context.Background(), 10, 1,
				fmt.Sprintf("FR76300040000100000000%05d", i), money(t, "10.00"), "")
		}(i)
	}
	wg.Wait()

	successes, insufficient := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("worker %d: unexpected error %v", i, err)
		}
	}

	if successes != 10 || insufficient != 15 {
		t.Fatalf("successes=%d insufficient=%d want 10/15", successes, insufficient)
	}
	if got := store.balance(t, 1); !got.Equal(decimal.Zero) {
		t.Fatalf("source balance=%s want=0", got)
	}
	if got := store.total(ids...); !got.Equal(totalBefore) {
		t.Fatalf("total balance=%s want=%s", got, totalBefore)
	}
	if entries := store.entries(); len(entries) != successes {
		t.Fatalf("journal entries=%d want=%d", len(entries), successes)
	}
}

// TestTransferCrossingPairs runs opposing transfers over the same pair of
// accounts. The canonical lock order must keep them deadlock-free, the
// conservation law must hold and no balance may go negative.
func TestTransferCrossingPairs(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "500.00"),
		account(2, 20, "FR7630004000010000000000202", "500.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, 5*time.Second)
	totalBefore := store.total(1, 2)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "7.00"), "")
		}()
		go func() {
			defer wg.Done()
			engine.Transfer(context.Background(), 20, 2, "FR7630004000010000000000101", money(t, "5.00"), "")
		}()
	}
	wg.Wait()

	if got := store.total(1, 2); !got.Equal(totalBefore) {
		t.Fatalf("total balance=%s want=%s", got, totalBefore)
	}
	if store.balance(t, 1).IsNegative() || store.balance(t, 2).IsNegative() {
		t.Fatalf("negative balance: a=%s b=%s", store.balance(t, 1), store.balance(t, 2))
	}
}

// TestTransferAuditChain verifies the before/after snapshots of
// consecutive ledger entries form the source account's actual balance
// trajectory.
func TestTransferAuditChain(t *testing.T) {
	store := newMemStore(
		account(1, 10, "FR7630004000010000000000101", "1000.00"),
		account(2, 20, "FR7630004000010000000000202", "0.00"),
	)
	engine, _ := newEngine(store, &recordingNotifier{}, time.Second)

	for i := 0; i < 3; i++ {
		if _, err := engine.Transfer(context.Background(), 10, 1, "FR7630004000010000000000202", money(t, "100.00"), ""); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}

	entries := store.entries()
	if len(entries) != 3 {
		t.Fatalf("journal entries=%d want=3", len(entries))
	}

	expected := money(t, "1000.00")
	for i, entry := range entries {
		if !entry.BalanceBefore.Equal(expected) {
			t.Fatalf("entry %d: before=%s want=%s", i, entry.BalanceBefore, expected)
		}
		expected = expected.Sub(money(t, "100.00"))
		if !entry.BalanceAfter.Equal(expected) {
			t.Fatalf("entry %d: after=%s want=%s", i, entry.BalanceAfter, expected)
		}
	}
	if got := store.balance(t, 1); !got.Equal(expected) {
		t.Fatalf("source balance=%s want=%s", got, expected)
	}
}
