package bkper

// AccountRef identifies an account on one side of a transaction.
type AccountRef struct {
	Id   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// File is an attachment on a transaction.
type File struct {
	Id          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Url         string `json:"url,omitempty"`
}

// Transaction is a double-entry record in a book.
type Transaction struct {
	Id          string            `json:"id,omitempty"`
	Description string            `json:"description,omitempty"`
	// Amount is a decimal rendered as a string to preserve precision.
	Amount        string            `json:"amount,omitempty"`
	CreditAccount *AccountRef       `json:"creditAccount,omitempty"`
	DebitAccount  *AccountRef       `json:"debitAccount,omitempty"`
	Urls          []string          `json:"urls,omitempty"`
	RemoteIds     []string          `json:"remoteIds,omitempty"`
	Files         []File            `json:"files,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	// Posted is true once the transaction has been checked into the ledger.
	Posted  bool `json:"posted,omitempty"`
	Trashed bool `json:"trashed,omitempty"`
	// CreatedAt is a millisecond Unix timestamp.
	CreatedAt int64 `json:"createdAt,omitempty,string"`
}

// Book is an accounting book.
type Book struct {
	Id   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}
