package ledger

import (
	"fmt"

	"monfari.org/internal/ids"
	"monfari.org/internal/money"
)

// Transaction records one movement or conversion of money. Transactions are
// append-only: the client never edits or deletes one.
type Transaction struct {
	ID     TransactionID
	Notes  string
	Amount money.Amount
	Type   TxType
}

// NewTransaction stamps a fresh id on a transaction of the given kind.
func NewTransaction(notes string, amount money.Amount, typ TxType) Transaction {
	return Transaction{
		ID:     ids.New[Transaction](),
		Notes:  notes,
		Amount: amount,
		Type:   typ,
	}
}

// TxType is one of Received, Paid, MovePhys, MoveVirt or Convert.
type TxType interface {
	// Kind is the wire discriminant.
	Kind() string
	// Accounts lists every account the transaction touches.
	Accounts() []AccountID
}

// Received is money coming in from outside the ledger.
type Received struct {
	Src     string
	Dst     AccountID
	DstVirt AccountID
}

// Paid is money leaving the ledger.
type Paid struct {
	Dst     string
	Src     AccountID
	SrcVirt AccountID
}

// MovePhys moves money between two physical accounts.
type MovePhys struct {
	Src AccountID
	Dst AccountID
}

// MoveVirt moves money between two virtual accounts.
type MoveVirt struct {
	Src AccountID
	Dst AccountID
}

// Convert exchanges Transaction.Amount for NewAmount inside one physical and one virtual account.
type Convert struct {
	NewAmount money.Amount
	Acc       AccountID
	AccVirt   AccountID
}

const (
	KindReceived = "Received"
	KindPaid     = "Paid"
	KindMovePhys = "MovePhys"
	KindMoveVirt = "MoveVirt"
	KindConvert  = "Convert"
)

func (Received) Kind() string { return KindReceived }
func (Paid) Kind() string     { return KindPaid }
func (MovePhys) Kind() string { return KindMovePhys }
func (MoveVirt) Kind() string { return KindMoveVirt }
func (Convert) Kind() string  { return KindConvert }

func (t Received) Accounts() []AccountID { return []AccountID{t.Dst, t.DstVirt} }
func (t Paid) Accounts() []AccountID     { return []AccountID{t.Src, t.SrcVirt} }
func (t MovePhys) Accounts() []AccountID { return []AccountID{t.Src, t.Dst} }
func (t MoveVirt) Accounts() []AccountID { return []AccountID{t.Src, t.Dst} }
func (t Convert) Accounts() []AccountID  { return []AccountID{t.Acc, t.AccVirt} }

// Touches reports whether the transaction affects account id.
func (t Transaction) Touches(id AccountID) bool {
	if t.Type == nil {
		return false
	}
	for _, a := range t.Type.Accounts() {
		if a == id {
			return true
		}
	}
	return false
}

// Describe renders a one-line summary as seen from account acc.
// Other accounts are resolved by name through accounts.
func (t Transaction) Describe(acc AccountID, accounts []Account) string {
	var desc string
	switch typ := t.Type.(type) {
	case Received:
		desc = "received from " + typ.Src
	case Paid:
		desc = "paid to " + typ.Dst
	case MovePhys:
		desc = describeMove(acc, typ.Src, typ.Dst, accounts)
	case MoveVirt:
		desc = describeMove(acc, typ.Src, typ.Dst, accounts)
	case Convert:
		desc = "converted to " + typ.NewAmount.Display()
	default:
		desc = "unknown transaction"
	}
	return fmt.Sprintf("%s %s", t.Amount.Display(), desc)
}

func describeMove(acc, src, dst AccountID, accounts []Account) string {
	dir, other := "from", src
	if src == acc {
		dir, other = "to", dst
	}
	name := "<Unknown Account>"
	if a, ok := Lookup(accounts, other); ok {
		name = a.Name
	}
	return fmt.Sprintf("moved %s %s", dir, name)
}
