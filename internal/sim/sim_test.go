package sim

import (
	"testing"

	"monfari.org/internal/ledger"
	"monfari.org/internal/money"
	"monfari.org/internal/server"
)

func TestGeneratedTransactionsAreAccepted(t *testing.T) {
	g := NewGenerator(42)
	book := server.NewBook()
	for _, a := range g.Accounts() {
		if err := book.CreateAccount(a); err != nil {
			t.Fatal(err)
		}
	}
	g.Use(book.Accounts())

	var c Counter
	for i := 0; i < 500; i++ {
		tx := g.Next()
		if err := book.Apply(tx); err != nil {
			t.Fatalf("transaction %d (%s) rejected: %v", i, tx.Type.Kind(), err)
		}
		c.Add(tx)
	}
	if c.Transactions != 500 {
		t.Fatalf("unexpected count %d", c.Transactions)
	}
	for _, kind := range []string{ledger.KindReceived, ledger.KindPaid, ledger.KindMovePhys, ledger.KindMoveVirt, ledger.KindConvert} {
		if c.ByKind[kind] == 0 {
			t.Errorf("kind %s never generated", kind)
		}
	}
	if err := CheckConservation(book.Accounts()); err != nil {
		t.Fatal(err)
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a, b := NewGenerator(7), NewGenerator(7)
	accs := a.Accounts()
	a.Use(accs)
	b.Use(accs)
	for i := 0; i < 20; i++ {
		x, y := a.Next(), b.Next()
		if x.Amount != y.Amount || x.Type != y.Type {
			t.Fatalf("step %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestNextPanicsWithoutAccounts(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewGenerator(1).Next()
}

func TestCheckConservation(t *testing.T) {
	phys := ledger.NewAccount("Bank", "", ledger.Physical)
	virt := ledger.NewAccount("Food", "", ledger.Virtual)
	phys.Current[money.EUR] = money.New(500, money.EUR)
	virt.Current[money.EUR] = money.New(500, money.EUR)
	if err := CheckConservation([]ledger.Account{phys, virt}); err != nil {
		t.Fatalf("balanced ledger rejected: %v", err)
	}

	virt.Current[money.GBP] = money.New(1, money.GBP)
	if err := CheckConservation([]ledger.Account{phys, virt}); err == nil {
		t.Fatal("expected GBP imbalance")
	}
}
