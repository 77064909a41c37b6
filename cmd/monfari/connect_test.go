package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monfari.org/internal/apperr"
	"monfari.org/internal/ledger"
	"monfari.org/internal/money"
)

func testAccounts() []ledger.Account {
	bank := ledger.NewAccount("Bank", "", ledger.Physical)
	bank.Current[money.EUR] = money.New(123456, money.EUR)
	bank.Current[money.GBP] = money.Zero(money.GBP)
	return []ledger.Account{
		bank,
		ledger.NewAccount("Food", "", ledger.Virtual),
		ledger.NewAccount("Twin", "", ledger.Physical),
		ledger.NewAccount("Twin", "", ledger.Virtual),
	}
}

func TestResolve(t *testing.T) {
	accs := testAccounts()

	got, err := resolve(accs, "Bank")
	require.NoError(t, err)
	assert.Equal(t, accs[0].ID, got.ID)

	got, err = resolve(accs, accs[2].ID.String())
	require.NoError(t, err)
	assert.Equal(t, accs[2].ID, got.ID)

	_, err = resolve(accs, "Twin")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolve(accs, "Nope")
	assert.ErrorContains(t, err, "no account")
}

func TestResolvePair(t *testing.T) {
	accs := testAccounts()

	p, v, err := resolvePair(accs, "Bank", "Food")
	require.NoError(t, err)
	assert.Equal(t, ledger.Physical, p.Type)
	assert.Equal(t, ledger.Virtual, v.Type)

	_, _, err = resolvePair(accs, "Food", "Bank")
	assert.ErrorContains(t, err, "not a physical account")
}

func TestParseAmount(t *testing.T) {
	_, err := parseAmount("12.5", "usd")
	assert.True(t, errors.Is(err, apperr.ErrInvalidCurrencyCode), "got %v", err)

	amt, err := parseAmount("12.5", "USD")
	require.NoError(t, err)
	assert.Equal(t, "12.50 USD", amt.String())

	_, err = parseAmount("0.001", "USD")
	assert.True(t, errors.Is(err, apperr.ErrNonIntegralMinorUnits), "got %v", err)
}

func TestBalances(t *testing.T) {
	accs := testAccounts()
	assert.Equal(t, "1 234.56 EUR", balances(accs[0]))
	assert.Equal(t, "-", balances(accs[1]))
}
