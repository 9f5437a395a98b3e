package blockchain

// REST API responses, parsed with yaml which reads JSON as well.

type batchStatusResponse struct {
	Data []batchStatus `yaml:"data"`
}

type batchStatus struct {
	ID                  string               `yaml:"id"`
	Status              string               `yaml:"status"`
	InvalidTransactions []invalidTransaction `yaml:"invalid_transactions"`
}

type invalidTransaction struct {
	ID      string `yaml:"id"`
	Message string `yaml:"message"`
}

type receiptsResponse struct {
	Data []receipt `yaml:"data"`
}

type receipt struct {
	TransactionID string         `yaml:"transaction_id"`
	Events        []receiptEvent `yaml:"events"`
}

type receiptEvent struct {
	EventType  string           `yaml:"event_type"`
	Attributes []eventAttribute `yaml:"attributes"`
	Data       string           `yaml:"data"`
}

type eventAttribute struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type stateResponse struct {
	Data string `yaml:"data"`
	Head string `yaml:"head"`
}

type submitErrorResponse struct {
	Error struct {
		Code    int    `yaml:"code"`
		Title   string `yaml:"title"`
		Message string `yaml:"message"`
	} `yaml:"error"`
}

// state records written by the transaction processor

type documentRecord struct {
	DocID       string           `cbor:"doc_id"`
	ContentHash []byte           `cbor:"content_hash"`
	Creator     string           `cbor:"creator"`
	Approvers   []approverRecord `cbor:"approvers"`
}

type approverRecord struct {
	Address    string `cbor:"address"`
	Approved   bool   `cbor:"approved"`
	ApprovedAt int64  `cbor:"approved_at"`
}
