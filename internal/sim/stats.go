package sim

import (
	"fmt"
	"slices"

	"monfari.org/internal/ledger"
	"monfari.org/internal/money"
)

type Counter struct {
	Transactions int
	ByKind       map[string]int
}

func (c *Counter) Add(tx ledger.Transaction) {
	if c.ByKind == nil {
		c.ByKind = make(map[string]int)
	}
	c.Transactions++
	if tx.Type != nil {
		c.ByKind[tx.Type.Kind()]++
	}
}

// Totals sums balances per currency, separately for physical and virtual accounts.
func Totals(accounts []ledger.Account) (phys, virt map[money.Currency]int64) {
	phys = make(map[money.Currency]int64)
	virt = make(map[money.Currency]int64)
	for _, a := range accounts {
		dst := phys
		if a.Type == ledger.Virtual {
			dst = virt
		}
		for c, amt := range a.Current {
			dst[c] += amt.Minor()
		}
	}
	return phys, virt
}

// CheckConservation verifies that, in every currency, the money held in
// physical accounts equals the money earmarked in virtual ones. Every
// transaction kind preserves this.
func CheckConservation(accounts []ledger.Account) error {
	phys, virt := Totals(accounts)
	currencies := make([]money.Currency, 0, len(phys)+len(virt))
	for c := range phys {
		currencies = append(currencies, c)
	}
	for c := range virt {
		if _, ok := phys[c]; !ok {
			currencies = append(currencies, c)
		}
	}
	slices.SortFunc(currencies, money.Currency.Compare)
	for _, c := range currencies {
		if phys[c] != virt[c] {
			return fmt.Errorf("conservation violated in %s: physical %s, virtual %s",
				c, money.New(phys[c], c), money.New(virt[c], c))
		}
	}
	return nil
}
