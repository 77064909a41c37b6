package ledger

// Command is a client-initiated mutation: AddTransaction or CreateAccount.
type Command interface {
	isCommand()
}

// AddTransaction appends a transaction to the ledger.
type AddTransaction struct {
	Transaction Transaction
}

// CreateAccount registers a new account.
type CreateAccount struct {
	Account Account
}

func (AddTransaction) isCommand() {}
func (CreateAccount) isCommand()  {}

// Message is the envelope of exactly one request: a Command or a TransactionsQuery.
type Message interface {
	// Kind names the message for logs and metrics.
	Kind() string
}

// CommandMessage carries a mutation. Its reply is the full account list.
type CommandMessage struct {
	Command Command
}

// TransactionsQuery asks for the history of one account. Its reply is a transaction list.
type TransactionsQuery struct {
	Account AccountID
}

func (m CommandMessage) Kind() string {
	switch m.Command.(type) {
	case AddTransaction:
		return "add_transaction"
	case CreateAccount:
		return "create_account"
	}
	return "command"
}

func (TransactionsQuery) Kind() string { return "transactions" }
