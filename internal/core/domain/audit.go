package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionScanAdmit     AuditAction = "SCAN_ADMIT"
	AuditActionScanDeny      AuditAction = "SCAN_DENY"
	AuditActionLedgerCommit  AuditAction = "LEDGER_COMMIT"
	AuditActionRefund        AuditAction = "REFUND"
	AuditActionTopup         AuditAction = "TOPUP"
	AuditActionProfileCreate AuditAction = "PROFILE_CREATE"
)

// AuditLog records a single authorization decision or ledger write.
// Write-once and best-effort: a missing audit row never blocks or rolls
// back the decision it describes.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	GatewayID    string      `json:"gateway_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time   `json:"created_at"`
}
