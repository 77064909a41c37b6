package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"monfari.org/internal/apperr"
	"monfari.org/internal/money"
)

// Wire shapes. Variant structs embed txHeader so only the variant's own fields are emitted.

type txHeader struct {
	ID     TransactionID `json:"id"`
	Notes  string        `json:"notes"`
	Amount money.Amount  `json:"amount"`
	Type   string        `json:"type"`
}

type receivedWire struct {
	txHeader
	Src     string    `json:"src"`
	Dst     AccountID `json:"dst"`
	DstVirt AccountID `json:"dst_virt"`
}

type paidWire struct {
	txHeader
	Dst     string    `json:"dst"`
	Src     AccountID `json:"src"`
	SrcVirt AccountID `json:"src_virt"`
}

type moveWire struct {
	txHeader
	Src AccountID `json:"src"`
	Dst AccountID `json:"dst"`
}

type convertWire struct {
	txHeader
	NewAmount money.Amount `json:"new_amount"`
	Acc       AccountID    `json:"acc"`
	AccVirt   AccountID    `json:"acc_virt"`
}

type accountWire struct {
	ID      AccountID                       `json:"id"`
	Name    string                          `json:"name"`
	Notes   string                          `json:"notes"`
	Typ     AccountType                     `json:"typ"`
	Enabled bool                            `json:"enabled"`
	Current map[money.Currency]money.Amount `json:"current"`
}

const (
	keyCommand        = "Command"
	keyTransactions   = "Transactions"
	keyAddTransaction = "AddTransaction"
	keyCreateAccount  = "CreateAccount"
)

// MarshalJSON writes the common transaction fields plus exactly the fields of its variant.
func (t Transaction) MarshalJSON() ([]byte, error) {
	if t.Type == nil {
		return nil, apperr.New(apperr.CodeUnknownVariant, "transaction without type")
	}
	h := txHeader{ID: t.ID, Notes: t.Notes, Amount: t.Amount, Type: t.Type.Kind()}
	switch typ := t.Type.(type) {
	case Received:
		return json.Marshal(receivedWire{txHeader: h, Src: typ.Src, Dst: typ.Dst, DstVirt: typ.DstVirt})
	case Paid:
		return json.Marshal(paidWire{txHeader: h, Dst: typ.Dst, Src: typ.Src, SrcVirt: typ.SrcVirt})
	case MovePhys:
		return json.Marshal(moveWire{txHeader: h, Src: typ.Src, Dst: typ.Dst})
	case MoveVirt:
		return json.Marshal(moveWire{txHeader: h, Src: typ.Src, Dst: typ.Dst})
	case Convert:
		return json.Marshal(convertWire{txHeader: h, NewAmount: typ.NewAmount, Acc: typ.Acc, AccVirt: typ.AccVirt})
	}
	return nil, apperr.New(apperr.CodeUnknownVariant, fmt.Sprintf("transaction type %T", t.Type))
}

// UnmarshalJSON switches on "type" and requires exactly that variant's field set.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data, "transaction")
	if err != nil {
		return err
	}
	var out Transaction
	var kind string
	if err := obj.take("id", &out.ID); err != nil {
		return err
	}
	if err := obj.take("notes", &out.Notes); err != nil {
		return err
	}
	if err := obj.take("amount", &out.Amount); err != nil {
		return err
	}
	if err := obj.take("type", &kind); err != nil {
		return err
	}

	switch kind {
	case KindReceived:
		var v Received
		err = obj.takeAll(field{"src", &v.Src}, field{"dst", &v.Dst}, field{"dst_virt", &v.DstVirt})
		out.Type = v
	case KindPaid:
		var v Paid
		err = obj.takeAll(field{"dst", &v.Dst}, field{"src", &v.Src}, field{"src_virt", &v.SrcVirt})
		out.Type = v
	case KindMovePhys:
		var v MovePhys
		err = obj.takeAll(field{"src", &v.Src}, field{"dst", &v.Dst})
		out.Type = v
	case KindMoveVirt:
		var v MoveVirt
		err = obj.takeAll(field{"src", &v.Src}, field{"dst", &v.Dst})
		out.Type = v
	case KindConvert:
		var v Convert
		err = obj.takeAll(field{"new_amount", &v.NewAmount}, field{"acc", &v.Acc}, field{"acc_virt", &v.AccVirt})
		out.Type = v
	default:
		return apperr.New(apperr.CodeUnknownVariant, fmt.Sprintf("transaction type %q", kind))
	}
	if err != nil {
		return err
	}
	if err := obj.done(); err != nil {
		return err
	}
	*t = out
	return nil
}

func (a Account) MarshalJSON() ([]byte, error) {
	current := a.Current
	if current == nil {
		current = map[money.Currency]money.Amount{}
	}
	return json.Marshal(accountWire{
		ID:      a.ID,
		Name:    a.Name,
		Notes:   a.Notes,
		Typ:     a.Type,
		Enabled: a.Enabled,
		Current: current,
	})
}

// UnmarshalJSON validates every balance key as a currency code and rejects the
// whole account on the first bad key or amount.
func (a *Account) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data, "account")
	if err != nil {
		return err
	}
	var w accountWire
	if err := obj.takeAll(
		field{"id", &w.ID},
		field{"name", &w.Name},
		field{"notes", &w.Notes},
		field{"typ", &w.Typ},
		field{"enabled", &w.Enabled},
		field{"current", &w.Current},
	); err != nil {
		return err
	}
	if !w.Typ.valid() {
		return apperr.New(apperr.CodeUnknownVariant, fmt.Sprintf("account type %q", w.Typ))
	}
	for c, amt := range w.Current {
		if amt.Currency() != c {
			return apperr.New(apperr.CodeDecodeFailure,
				fmt.Sprintf("account.current: %s balance is in %s", c, amt.Currency()))
		}
	}
	if w.Current == nil {
		w.Current = map[money.Currency]money.Amount{}
	}
	*a = Account{
		ID:      w.ID,
		Name:    w.Name,
		Notes:   w.Notes,
		Type:    w.Typ,
		Enabled: w.Enabled,
		Current: w.Current,
	}
	return nil
}

func (c AddTransaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Transaction{keyAddTransaction: c.Transaction})
}

func (c CreateAccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Account{keyCreateAccount: c.Account})
}

func (m CommandMessage) MarshalJSON() ([]byte, error) {
	if m.Command == nil {
		return nil, apperr.New(apperr.CodeUnknownVariant, "empty command")
	}
	return json.Marshal(map[string]Command{keyCommand: m.Command})
}

func (m TransactionsQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]AccountID{keyTransactions: m.Account})
}

// EncodeMessage serializes one request envelope.
func EncodeMessage(m Message) ([]byte, error) {
	if m == nil {
		return nil, apperr.New(apperr.CodeUnknownVariant, "nil message")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, encodeError("message", err)
	}
	return b, nil
}

// DecodeMessage parses a request envelope.
func DecodeMessage(data []byte) (Message, error) {
	key, raw, err := decodeSingleKey(data, "message")
	if err != nil {
		return nil, err
	}
	switch key {
	case keyCommand:
		cmd, err := DecodeCommand(raw)
		if err != nil {
			return nil, err
		}
		return CommandMessage{Command: cmd}, nil
	case keyTransactions:
		var id AccountID
		if err := unmarshalField(raw, &id, "message.Transactions"); err != nil {
			return nil, err
		}
		return TransactionsQuery{Account: id}, nil
	}
	return nil, apperr.New(apperr.CodeUnknownVariant, fmt.Sprintf("message %q", key))
}

// EncodeCommand serializes a command without the message envelope.
func EncodeCommand(c Command) ([]byte, error) {
	if c == nil {
		return nil, apperr.New(apperr.CodeUnknownVariant, "nil command")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, encodeError("command", err)
	}
	return b, nil
}

// DecodeCommand parses {"AddTransaction": ...} or {"CreateAccount": ...}.
func DecodeCommand(data []byte) (Command, error) {
	key, raw, err := decodeSingleKey(data, "command")
	if err != nil {
		return nil, err
	}
	switch key {
	case keyAddTransaction:
		var tx Transaction
		if err := unmarshalField(raw, &tx, "command.AddTransaction"); err != nil {
			return nil, err
		}
		return AddTransaction{Transaction: tx}, nil
	case keyCreateAccount:
		var acc Account
		if err := unmarshalField(raw, &acc, "command.CreateAccount"); err != nil {
			return nil, err
		}
		return CreateAccount{Account: acc}, nil
	}
	return nil, apperr.New(apperr.CodeUnknownVariant, fmt.Sprintf("command %q", key))
}

// EncodeAccounts and EncodeTransactions produce reply payloads.
func EncodeAccounts(accounts []Account) ([]byte, error) {
	if accounts == nil {
		accounts = []Account{}
	}
	b, err := json.Marshal(accounts)
	if err != nil {
		return nil, encodeError("accounts", err)
	}
	return b, nil
}

func EncodeTransactions(txs []Transaction) ([]byte, error) {
	if txs == nil {
		txs = []Transaction{}
	}
	b, err := json.Marshal(txs)
	if err != nil {
		return nil, encodeError("transactions", err)
	}
	return b, nil
}

// DecodeAccounts parses a full account list. Any invalid element fails the whole list.
func DecodeAccounts(data []byte) ([]Account, error) {
	return decodeList[Account](data, "accounts")
}

// DecodeTransactions parses an ordered transaction list.
func DecodeTransactions(data []byte) ([]Transaction, error) {
	return decodeList[Transaction](data, "transactions")
}

func decodeList[T any](data []byte, what string) ([]T, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, apperr.Wrap(apperr.CodeDecodeFailure, what, err)
	}
	if raws == nil {
		return nil, apperr.New(apperr.CodeDecodeFailure, what+": expected a list, got null")
	}
	out := make([]T, len(raws))
	for i, raw := range raws {
		if err := unmarshalField(raw, &out[i], fmt.Sprintf("%s[%d]", what, i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// helpers --------------------------------------------------------------------

// object is a decoded JSON object whose fields are consumed one by one,
// so leftovers can be reported as foreign to the variant.
type object struct {
	what   string
	fields map[string]json.RawMessage
}

type field struct {
	key string
	dst any
}

func decodeObject(data []byte, what string) (*object, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, apperr.Wrap(apperr.CodeDecodeFailure, what, err)
	}
	if fields == nil {
		return nil, apperr.New(apperr.CodeDecodeFailure, what+": expected an object, got null")
	}
	return &object{what: what, fields: fields}, nil
}

func (o *object) take(key string, dst any) error {
	raw, ok := o.fields[key]
	if !ok {
		return apperr.New(apperr.CodeDecodeFailure, fmt.Sprintf("%s: missing field %q", o.what, key))
	}
	delete(o.fields, key)
	return unmarshalField(raw, dst, o.what+"."+key)
}

func (o *object) takeAll(fs ...field) error {
	for _, f := range fs {
		if err := o.take(f.key, f.dst); err != nil {
			return err
		}
	}
	return nil
}

// done fails if any field was not consumed.
func (o *object) done() error {
	if len(o.fields) == 0 {
		return nil
	}
	extra := make([]string, 0, len(o.fields))
	for k := range o.fields {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return apperr.New(apperr.CodeDecodeFailure, fmt.Sprintf("%s: unexpected fields %v", o.what, extra))
}

func decodeSingleKey(data []byte, what string) (string, json.RawMessage, error) {
	obj, err := decodeObject(data, what)
	if err != nil {
		return "", nil, err
	}
	if len(obj.fields) != 1 {
		return "", nil, apperr.New(apperr.CodeDecodeFailure,
			fmt.Sprintf("%s: expected exactly one key, got %d", what, len(obj.fields)))
	}
	for k, v := range obj.fields {
		return k, v, nil
	}
	panic("unreachable")
}

// unmarshalField keeps the code of a nested apperr.Error and reports
// everything else, including null, as a decode failure.
func unmarshalField(raw json.RawMessage, dst any, path string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return apperr.New(apperr.CodeDecodeFailure, path+": empty value")
	}
	// json.Unmarshal treats null as a no-op, which would leave dst at its zero value.
	if bytes.Equal(trimmed, []byte("null")) {
		return apperr.New(apperr.CodeDecodeFailure, path+": null value")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		code := apperr.CodeOf(err)
		if code == "" {
			code = apperr.CodeDecodeFailure
		}
		return apperr.Wrap(code, path, err)
	}
	return nil
}

func encodeError(what string, err error) error {
	code := apperr.CodeOf(err)
	if code == "" {
		code = apperr.CodeDecodeFailure
	}
	return apperr.Wrap(code, "encode "+what, err)
}
