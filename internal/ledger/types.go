package ledger

import (
	"slices"

	"monfari.org/internal/ids"
	"monfari.org/internal/money"
)

// AccountID and TransactionID are distinct identifier kinds over the same text form.
type (
	AccountID     = ids.ID[Account]
	TransactionID = ids.ID[Transaction]
)

// AccountType distinguishes where money physically sits from how it is earmarked.
type AccountType string

const (
	Physical AccountType = "Physical"
	Virtual  AccountType = "Virtual"
)

func (t AccountType) valid() bool { return t == Physical || t == Virtual }

// Account is owned by the server; the client only ever replaces whole lists of them.
// Currencies missing from Current have a zero balance.
type Account struct {
	ID      AccountID
	Name    string
	Notes   string
	Type    AccountType
	Enabled bool
	Current map[money.Currency]money.Amount
}

// NewAccount prepares an enabled account with a fresh id and no balances,
// ready to be sent in a CreateAccount command.
func NewAccount(name, notes string, typ AccountType) Account {
	return Account{
		ID:      ids.New[Account](),
		Name:    name,
		Notes:   notes,
		Type:    typ,
		Enabled: true,
		Current: map[money.Currency]money.Amount{},
	}
}

// Balance returns the balance in c, zero when absent.
func (a Account) Balance(c money.Currency) money.Amount {
	if amt, ok := a.Current[c]; ok {
		return amt
	}
	return money.Zero(c)
}

// Balances returns the non-zero balances ordered by currency code.
func (a Account) Balances() []money.Amount {
	out := make([]money.Amount, 0, len(a.Current))
	for _, amt := range a.Current {
		if !amt.IsZero() {
			out = append(out, amt)
		}
	}
	slices.SortFunc(out, money.Amount.Compare)
	return out
}

// Clone returns a copy that shares no map with a.
func (a Account) Clone() Account {
	out := a
	out.Current = make(map[money.Currency]money.Amount, len(a.Current))
	for k, v := range a.Current {
		out.Current[k] = v
	}
	return out
}

// Lookup finds an account by id.
func Lookup(accounts []Account, id AccountID) (Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// CloneAccounts deep-copies a list of accounts.
func CloneAccounts(accounts []Account) []Account {
	if accounts == nil {
		return nil
	}
	out := make([]Account, len(accounts))
	for i, a := range accounts {
		out[i] = a.Clone()
	}
	return out
}
