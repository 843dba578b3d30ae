// Package audit records immutable change history for the operations that
// move the order cycle forward: order creation, factory assignment, barcode
// release and master-data edits.
package audit

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"storedesk/models"
)

// Actions written by the core workflow.
const (
	ActionOrderCreated     = "order_created"
	ActionFactoryAssigned  = "factory_assigned"
	ActionBarcodesReleased = "barcodes_released"
	ActionCreated          = "created"
	ActionBatchUpdated     = "batch_updated"
	ActionImported         = "imported"
	ActionDeleted          = "deleted"
)

// Service writes audit records inside the caller transaction.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := marshal(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return err
	}
	log := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	_, err = tx.NewInsert().Model(log).Exec(ctx)
	return err
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
