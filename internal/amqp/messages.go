package amqp

import (
	"encoding/json"
	"time"

	"tillbook/internal/core"
)

// Message types carried in the AMQP Publishing.Type field. The worker
// dispatches on them.
const (
	TypeTransactionExport = "transaction.export"
	TypeTransactionDelete = "transaction.delete"
	TypeRecordExport      = "record.export"
)

// Record collections for RecordExportMessage.
const (
	CollectionClosing       = "closing"
	CollectionReimbursement = "reimbursement"
)

// TransactionExportMessage asks the worker to mirror one ledger row to the
// spreadsheet. It carries only the id; the worker fetches the row from the
// database so the sheet always gets the current data.
type TransactionExportMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionExportMessage(id int64) *TransactionExportMessage {
	return &TransactionExportMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *TransactionExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionExportMessageFromJSON(data []byte) (*TransactionExportMessage, error) {
	var msg TransactionExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TransactionDeleteMessage carries the full row data because the local row is
// already gone when the worker runs; the data is what locates the mirrored
// row in the sheet.
type TransactionDeleteMessage struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Account     string    `json:"account"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionDeleteMessage(tx core.Transaction) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Kind:        string(tx.Kind),
		Category:    tx.Category,
		Subcategory: tx.Subcategory,
		Account:     string(tx.Account),
		AmountCents: tx.Amount.Cents,
		Note:        tx.Note,
		Timestamp:   time.Now(),
	}
}

func (m *TransactionDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionDeleteMessageFromJSON(data []byte) (*TransactionDeleteMessage, error) {
	var msg TransactionDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecordExportMessage asks the worker to mirror a keyed record (a monthly
// closing or a reimbursement record) identified by collection and key.
type RecordExportMessage struct {
	Collection string    `json:"collection"`
	Key        string    `json:"key"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecordExportMessage(collection, key string) *RecordExportMessage {
	return &RecordExportMessage{
		Collection: collection,
		Key:        key,
		Timestamp:  time.Now(),
	}
}

func (m *RecordExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordExportMessageFromJSON(data []byte) (*RecordExportMessage, error) {
	var msg RecordExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
