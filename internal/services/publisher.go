// Package services orchestrates ledger operations across the local store
// and the AMQP export pipeline. Every service writes locally first and
// publishes mirror messages best-effort: a broker outage never fails a
// request, the pending-export scan catches up later.
package services

import (
	"context"

	"tillbook/internal/core"
)

// Publisher is the slice of the AMQP client the services need. A nil
// Publisher disables mirroring entirely (tests, memory backend).
type Publisher interface {
	PublishTransactionExport(ctx context.Context, id int64) error
	PublishTransactionDelete(ctx context.Context, tx core.Transaction) error
	PublishRecordExport(ctx context.Context, collection, key string) error
}
