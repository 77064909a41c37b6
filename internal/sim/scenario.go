package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"monfari.org/internal/ledger"
	"monfari.org/internal/money"
)

type AccountSpec struct {
	Name string
	Type ledger.AccountType
}

type Scenario struct {
	Name       string
	Accounts   []AccountSpec
	Currencies []money.Currency
	Payers     []string
	Payees     []string
}

func HouseholdScenario() Scenario {
	return Scenario{
		Name: "Household",
		Accounts: []AccountSpec{
			{Name: "Current account", Type: ledger.Physical},
			{Name: "Savings", Type: ledger.Physical},
			{Name: "Wallet", Type: ledger.Physical},
			{Name: "Groceries", Type: ledger.Virtual},
			{Name: "Rent", Type: ledger.Virtual},
			{Name: "Holidays", Type: ledger.Virtual},
		},
		Currencies: []money.Currency{money.EUR, money.GBP, money.USD},
		Payers:     []string{"Employer", "Tax refund", "Gift"},
		Payees:     []string{"Supermarket", "Landlord", "Airline", "Cafe"},
	}
}

// Generator produces random but always valid transactions over a fixed set
// of accounts. It is not safe for concurrent use.
type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
	phys     []ledger.AccountID
	virt     []ledger.AccountID
}

func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{scenario: HouseholdScenario(), rnd: rand.New(rand.NewSource(seed))}
}

// Accounts builds fresh accounts for the scenario, ready for CreateAccount.
func (g *Generator) Accounts() []ledger.Account {
	out := make([]ledger.Account, 0, len(g.scenario.Accounts))
	for _, a := range g.scenario.Accounts {
		out = append(out, ledger.NewAccount(a.Name, "sim", a.Type))
	}
	return out
}

// Use sets the accounts transactions are drawn from.
func (g *Generator) Use(accounts []ledger.Account) {
	g.phys, g.virt = nil, nil
	for _, a := range accounts {
		if !a.Enabled {
			continue
		}
		switch a.Type {
		case ledger.Physical:
			g.phys = append(g.phys, a.ID)
		case ledger.Virtual:
			g.virt = append(g.virt, a.ID)
		}
	}
}

// Next returns a transaction of a random kind. Moves are only drawn when two
// accounts of the same type exist. It panics unless Use was given at least
// one physical and one virtual account.
func (g *Generator) Next() ledger.Transaction {
	if len(g.phys) == 0 || len(g.virt) == 0 {
		panic("sim: need at least one physical and one virtual account")
	}
	cur := g.scenario.Currencies[g.rnd.Intn(len(g.scenario.Currencies))]
	amount := money.New(int64(g.rnd.Intn(99_900)+100), cur) // 1.00 - 1000.00

	kinds := []string{ledger.KindReceived, ledger.KindPaid, ledger.KindConvert}
	if len(g.phys) > 1 {
		kinds = append(kinds, ledger.KindMovePhys)
	}
	if len(g.virt) > 1 {
		kinds = append(kinds, ledger.KindMoveVirt)
	}

	var typ ledger.TxType
	switch kinds[g.rnd.Intn(len(kinds))] {
	case ledger.KindReceived:
		typ = ledger.Received{Src: g.counterparty(g.scenario.Payers), Dst: g.pick(g.phys), DstVirt: g.pick(g.virt)}
	case ledger.KindPaid:
		typ = ledger.Paid{Dst: g.counterparty(g.scenario.Payees), Src: g.pick(g.phys), SrcVirt: g.pick(g.virt)}
	case ledger.KindMovePhys:
		src, dst := g.pair(g.phys)
		typ = ledger.MovePhys{Src: src, Dst: dst}
	case ledger.KindMoveVirt:
		src, dst := g.pair(g.virt)
		typ = ledger.MoveVirt{Src: src, Dst: dst}
	case ledger.KindConvert:
		to := g.scenario.Currencies[g.rnd.Intn(len(g.scenario.Currencies))]
		newAmount := money.New(int64(g.rnd.Intn(99_900)+100), to)
		typ = ledger.Convert{NewAmount: newAmount, Acc: g.pick(g.phys), AccVirt: g.pick(g.virt)}
	}
	return ledger.NewTransaction("sim", amount, typ)
}

func (g *Generator) pick(ids []ledger.AccountID) ledger.AccountID {
	return ids[g.rnd.Intn(len(ids))]
}

func (g *Generator) pair(ids []ledger.AccountID) (ledger.AccountID, ledger.AccountID) {
	i := g.rnd.Intn(len(ids))
	j := g.rnd.Intn(len(ids) - 1)
	if j >= i {
		j++
	}
	return ids[i], ids[j]
}

// counterparty names an outside party with a reference number.
func (g *Generator) counterparty(names []string) string {
	ref, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		return names[g.rnd.Intn(len(names))]
	}
	return fmt.Sprintf("%s (ref %s)", names[g.rnd.Intn(len(names))], ref.String()[:8])
}
