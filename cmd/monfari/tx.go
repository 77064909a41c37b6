package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"monfari.org/internal/ledger"
)

type transactionsCmd struct {
	account string
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list the history of one account" }
func (*transactionsCmd) Usage() string {
	return `monfari transactions -a <account>

  Prints every transaction touching the account, oldest first, described
  from that account's point of view. <account> is an id or a unique name.
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account id or name.")
}

func (c *transactionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		return usage("-a is required")
	}
	s, err := connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Disconnect()

	accounts := s.Accounts()
	acc, err := resolve(accounts, c.account)
	if err != nil {
		return fail(err)
	}
	txs, err := s.ListTransactions(ctx, acc.ID)
	if err != nil {
		return fail(err)
	}
	for _, tx := range txs {
		line := tx.Describe(acc.ID, accounts)
		if tx.Notes != "" {
			line += " (" + tx.Notes + ")"
		}
		fmt.Fprintf(stdout, "%s  %s\n", tx.ID, line)
	}
	return subcommands.ExitSuccess
}

// amountFlags are shared by every transaction-creating command.
type amountFlags struct {
	amount   string
	currency string
	notes    string
}

func (a *amountFlags) set(f *flag.FlagSet) {
	f.StringVar(&a.amount, "amount", "", "Amount in major units, e.g. 12.50.")
	f.StringVar(&a.currency, "currency", "EUR", "Three-letter currency code.")
	f.StringVar(&a.notes, "notes", "", "Free-text notes.")
}

type receiveCmd struct {
	amountFlags
	from, to, toVirt string
}

func (*receiveCmd) Name() string     { return "receive" }
func (*receiveCmd) Synopsis() string { return "record money received from outside" }
func (*receiveCmd) Usage() string {
	return `monfari receive -from <payer> -to <physical> -to-virt <virtual> -amount <n> [-currency <ccy>] [-notes <text>]
`
}

func (c *receiveCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.StringVar(&c.from, "from", "", "Who paid, free text.")
	f.StringVar(&c.to, "to", "", "Physical account receiving the money.")
	f.StringVar(&c.toVirt, "to-virt", "", "Virtual account earmarking the money.")
}

func (c *receiveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.toVirt == "" || c.amount == "" {
		return usage("-from, -to, -to-virt and -amount are required")
	}
	amt, err := parseAmount(c.amount, c.currency)
	if err != nil {
		return usage(err.Error())
	}
	s, err := connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Disconnect()

	dst, dstVirt, err := resolvePair(s.Accounts(), c.to, c.toVirt)
	if err != nil {
		return fail(err)
	}
	tx := ledger.NewTransaction(c.notes, amt, ledger.Received{Src: c.from, Dst: dst.ID, DstVirt: dstVirt.ID})
	return submit(ctx, s, tx)
}

type payCmd struct {
	amountFlags
	to, from, fromVirt string
}

func (*payCmd) Name() string     { return "pay" }
func (*payCmd) Synopsis() string { return "record money paid to outside" }
func (*payCmd) Usage() string {
	return `monfari pay -to <payee> -from <physical> -from-virt <virtual> -amount <n> [-currency <ccy>] [-notes <text>]
`
}

func (c *payCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.StringVar(&c.to, "to", "", "Who was paid, free text.")
	f.StringVar(&c.from, "from", "", "Physical account the money leaves.")
	f.StringVar(&c.fromVirt, "from-virt", "", "Virtual account the money was earmarked in.")
}

func (c *payCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.to == "" || c.from == "" || c.fromVirt == "" || c.amount == "" {
		return usage("-to, -from, -from-virt and -amount are required")
	}
	amt, err := parseAmount(c.amount, c.currency)
	if err != nil {
		return usage(err.Error())
	}
	s, err := connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Disconnect()

	src, srcVirt, err := resolvePair(s.Accounts(), c.from, c.fromVirt)
	if err != nil {
		return fail(err)
	}
	tx := ledger.NewTransaction(c.notes, amt, ledger.Paid{Dst: c.to, Src: src.ID, SrcVirt: srcVirt.ID})
	return submit(ctx, s, tx)
}

type moveCmd struct {
	amountFlags
	from, to string
}

func (*moveCmd) Name() string     { return "move" }
func (*moveCmd) Synopsis() string { return "move money between two accounts of the same type" }
func (*moveCmd) Usage() string {
	return `monfari move -from <account> -to <account> -amount <n> [-currency <ccy>] [-notes <text>]

  Both accounts must be physical, or both virtual.
`
}

func (c *moveCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.StringVar(&c.from, "from", "", "Source account.")
	f.StringVar(&c.to, "to", "", "Destination account.")
}

func (c *moveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount == "" {
		return usage("-from, -to and -amount are required")
	}
	amt, err := parseAmount(c.amount, c.currency)
	if err != nil {
		return usage(err.Error())
	}
	s, err := connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Disconnect()

	accounts := s.Accounts()
	src, err := resolve(accounts, c.from)
	if err != nil {
		return fail(err)
	}
	dst, err := resolve(accounts, c.to)
	if err != nil {
		return fail(err)
	}
	if src.Type != dst.Type {
		return usage(fmt.Sprintf("%s is %s but %s is %s", src.Name, src.Type, dst.Name, dst.Type))
	}
	var typ ledger.TxType = ledger.MovePhys{Src: src.ID, Dst: dst.ID}
	if src.Type == ledger.Virtual {
		typ = ledger.MoveVirt{Src: src.ID, Dst: dst.ID}
	}
	return submit(ctx, s, ledger.NewTransaction(c.notes, amt, typ))
}

type convertCmd struct {
	amountFlags
	acc, accVirt           string
	newAmount, newCurrency string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "exchange one currency for another inside an account pair" }
func (*convertCmd) Usage() string {
	return `monfari convert -acc <physical> -acc-virt <virtual> -amount <n> -currency <ccy> -new-amount <n> -new-currency <ccy> [-notes <text>]
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.StringVar(&c.acc, "acc", "", "Physical account holding the money.")
	f.StringVar(&c.accVirt, "acc-virt", "", "Virtual account earmarking the money.")
	f.StringVar(&c.newAmount, "new-amount", "", "Amount obtained, in major units.")
	f.StringVar(&c.newCurrency, "new-currency", "", "Currency obtained.")
}

func (c *convertCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.acc == "" || c.accVirt == "" || c.amount == "" || c.newAmount == "" || c.newCurrency == "" {
		return usage("-acc, -acc-virt, -amount, -new-amount and -new-currency are required")
	}
	amt, err := parseAmount(c.amount, c.currency)
	if err != nil {
		return usage(err.Error())
	}
	newAmt, err := parseAmount(c.newAmount, c.newCurrency)
	if err != nil {
		return usage(err.Error())
	}
	s, err := connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Disconnect()

	acc, accVirt, err := resolvePair(s.Accounts(), c.acc, c.accVirt)
	if err != nil {
		return fail(err)
	}
	tx := ledger.NewTransaction(c.notes, amt, ledger.Convert{NewAmount: newAmt, Acc: acc.ID, AccVirt: accVirt.ID})
	return submit(ctx, s, tx)
}

// resolvePair resolves a physical and a virtual account reference.
func resolvePair(accounts []ledger.Account, phys, virt string) (ledger.Account, ledger.Account, error) {
	p, err := resolve(accounts, phys)
	if err != nil {
		return ledger.Account{}, ledger.Account{}, err
	}
	v, err := resolve(accounts, virt)
	if err != nil {
		return ledger.Account{}, ledger.Account{}, err
	}
	if p.Type != ledger.Physical {
		return ledger.Account{}, ledger.Account{}, fmt.Errorf("%s is not a physical account", p.Name)
	}
	if v.Type != ledger.Virtual {
		return ledger.Account{}, ledger.Account{}, fmt.Errorf("%s is not a virtual account", v.Name)
	}
	return p, v, nil
}
