package server

import (
	"errors"
	"sync"

	"monfari.org/internal/ledger"
	"monfari.org/internal/money"
)

var (
	ErrUnknownAccount     = errors.New("unknown account")
	ErrDisabledAccount    = errors.New("account disabled")
	ErrWrongAccountType   = errors.New("wrong account type")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrDuplicate          = errors.New("duplicate id")
)

// Book is the in-memory ledger behind the development server.
// Accounts keep creation order; transactions keep application order.
type Book struct {
	mu    sync.RWMutex
	accts map[ledger.AccountID]*ledger.Account
	order []ledger.AccountID
	txs   []ledger.Transaction
	seen  map[ledger.TransactionID]struct{}
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		accts: make(map[ledger.AccountID]*ledger.Account),
		seen:  make(map[ledger.TransactionID]struct{}),
	}
}

// CreateAccount registers acc. Balances always start empty; only transactions move money.
func (b *Book) CreateAccount(acc ledger.Account) error {
	if acc.ID.IsZero() || (acc.Type != ledger.Physical && acc.Type != ledger.Virtual) {
		return ErrInvalidAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accts[acc.ID]; ok {
		return ErrDuplicate
	}
	stored := acc.Clone()
	stored.Current = map[money.Currency]money.Amount{}
	b.accts[acc.ID] = &stored
	b.order = append(b.order, acc.ID)
	return nil
}

// Apply validates tx against the current accounts and, if it passes, posts it.
// Nothing is mutated when an error is returned. A transaction id that was
// already applied is rejected with ErrDuplicate.
func (b *Book) Apply(tx ledger.Transaction) error {
	if tx.ID.IsZero() || tx.Type == nil || tx.Amount.Currency().IsZero() {
		return ErrInvalidTransaction
	}
	if tx.Amount.IsZero() || tx.Amount.IsNegative() {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[tx.ID]; ok {
		return ErrDuplicate
	}

	var postings []posting
	switch t := tx.Type.(type) {
	case ledger.Received:
		if err := b.check(t.Dst, ledger.Physical); err != nil {
			return err
		}
		if err := b.check(t.DstVirt, ledger.Virtual); err != nil {
			return err
		}
		postings = []posting{{t.Dst, tx.Amount}, {t.DstVirt, tx.Amount}}
	case ledger.Paid:
		if err := b.check(t.Src, ledger.Physical); err != nil {
			return err
		}
		if err := b.check(t.SrcVirt, ledger.Virtual); err != nil {
			return err
		}
		postings = []posting{{t.Src, tx.Amount.Neg()}, {t.SrcVirt, tx.Amount.Neg()}}
	case ledger.MovePhys:
		if err := b.checkPair(t.Src, t.Dst, ledger.Physical); err != nil {
			return err
		}
		postings = []posting{{t.Src, tx.Amount.Neg()}, {t.Dst, tx.Amount}}
	case ledger.MoveVirt:
		if err := b.checkPair(t.Src, t.Dst, ledger.Virtual); err != nil {
			return err
		}
		postings = []posting{{t.Src, tx.Amount.Neg()}, {t.Dst, tx.Amount}}
	case ledger.Convert:
		if t.NewAmount.Currency().IsZero() {
			return ErrInvalidTransaction
		}
		if t.NewAmount.IsZero() || t.NewAmount.IsNegative() {
			return ErrInvalidAmount
		}
		if err := b.check(t.Acc, ledger.Physical); err != nil {
			return err
		}
		if err := b.check(t.AccVirt, ledger.Virtual); err != nil {
			return err
		}
		postings = []posting{
			{t.Acc, tx.Amount.Neg()}, {t.AccVirt, tx.Amount.Neg()},
			{t.Acc, t.NewAmount}, {t.AccVirt, t.NewAmount},
		}
	default:
		return ErrInvalidTransaction
	}

	for _, p := range postings {
		acc := b.accts[p.acc]
		bal := acc.Balance(p.delta.Currency()).Add(p.delta)
		if bal.IsZero() {
			delete(acc.Current, bal.Currency())
		} else {
			acc.Current[bal.Currency()] = bal
		}
	}

	b.seen[tx.ID] = struct{}{}
	b.txs = append(b.txs, tx)
	return nil
}

type posting struct {
	acc   ledger.AccountID
	delta money.Amount
}

func (b *Book) check(id ledger.AccountID, typ ledger.AccountType) error {
	acc, ok := b.accts[id]
	if !ok {
		return ErrUnknownAccount
	}
	if !acc.Enabled {
		return ErrDisabledAccount
	}
	if acc.Type != typ {
		return ErrWrongAccountType
	}
	return nil
}

func (b *Book) checkPair(src, dst ledger.AccountID, typ ledger.AccountType) error {
	if err := b.check(src, typ); err != nil {
		return err
	}
	return b.check(dst, typ)
}

// Accounts returns a copy of every account in creation order.
func (b *Book) Accounts() []ledger.Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ledger.Account, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.accts[id].Clone())
	}
	return out
}

// Transactions returns the history of one account, oldest first.
// An unknown account has an empty history.
func (b *Book) Transactions(id ledger.AccountID) []ledger.Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []ledger.Transaction{}
	for _, tx := range b.txs {
		if tx.Touches(id) {
			out = append(out, tx)
		}
	}
	return out
}

// Len reports how many transactions have been applied.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.txs)
}
