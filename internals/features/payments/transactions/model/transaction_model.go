// file: internals/features/payments/transactions/model/transaction_model.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionStatus string

const (
	TxCompleted TransactionStatus = "Completed"
	TxPartial   TransactionStatus = "Partial"
	TxFailed    TransactionStatus = "Failed"
	TxPending   TransactionStatus = "Pending"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxCompleted, TxPartial, TxFailed, TxPending:
		return true
	}
	return false
}

type Transaction struct {
	TransactionID            uuid.UUID         `gorm:"column:transaction_id;type:uuid;primaryKey" json:"id"`
	TransactionLinkID        uuid.UUID         `gorm:"column:transaction_link_id;type:uuid;not null;index" json:"paymentLinkId"`
	TransactionLinkTitle     string            `gorm:"column:transaction_link_title;type:varchar(200)" json:"paymentLink"`
	TransactionPartialID     *uuid.UUID        `gorm:"column:transaction_partial_id;type:uuid;index" json:"partialPaymentId,omitempty"`
	TransactionStudentName   string            `gorm:"column:transaction_student_name;type:varchar(160);not null" json:"studentName"`
	TransactionEmail         string            `gorm:"column:transaction_email;type:varchar(160);index" json:"email"`
	TransactionAmount        int64             `gorm:"column:transaction_amount;not null" json:"amount"`
	TransactionStatus        TransactionStatus `gorm:"column:transaction_status;type:varchar(20);not null;index" json:"status"`
	TransactionDate          time.Time         `gorm:"column:transaction_date;not null;index" json:"date"`
	TransactionMethod        string            `gorm:"column:transaction_method;type:varchar(60)" json:"method"`
	TransactionReference     string            `gorm:"column:transaction_reference;type:varchar(80);not null;uniqueIndex" json:"reference"`
	TransactionIsPartial     bool              `gorm:"column:transaction_is_partial;not null;default:false" json:"isPartial"`
	TransactionRemaining     int64             `gorm:"column:transaction_remaining_amount;not null;default:0" json:"remainingAmount"`
	TransactionStudentID     string            `gorm:"column:transaction_student_id;type:varchar(80)" json:"studentId"`
	TransactionClass         string            `gorm:"column:transaction_class;type:varchar(80)" json:"class"`
	TransactionParentPhone   string            `gorm:"column:transaction_parent_phone;type:varchar(40)" json:"parentPhone"`
	TransactionCustomFields  datatypes.JSONMap `gorm:"column:transaction_custom_field_values;type:jsonb" json:"customFieldValues,omitempty"`
	TransactionGatewayStatus string            `gorm:"column:transaction_gateway_status;type:varchar(40)" json:"-"`
	TransactionGatewayMeta   datatypes.JSONMap `gorm:"column:transaction_gateway_meta;type:jsonb" json:"-"`

	TransactionCreatedAt time.Time      `gorm:"column:transaction_created_at;autoCreateTime" json:"createdAt"`
	TransactionUpdatedAt time.Time      `gorm:"column:transaction_updated_at;autoUpdateTime" json:"updatedAt"`
	TransactionDeletedAt gorm.DeletedAt `gorm:"column:transaction_deleted_at;index" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == uuid.Nil {
		t.TransactionID = uuid.New()
	}
	return t.Validate()
}

// Validate checks isPartial ⇒ remaining > 0 and Completed ⇒ remaining = 0.
func (t *Transaction) Validate() error {
	if !t.TransactionStatus.Valid() {
		return fmt.Errorf("invalid transaction status %q", t.TransactionStatus)
	}
	if t.TransactionAmount <= 0 {
		return fmt.Errorf("transaction amount must be positive")
	}
	if t.TransactionRemaining < 0 {
		return fmt.Errorf("remaining amount cannot be negative")
	}
	if t.TransactionIsPartial && t.TransactionRemaining <= 0 {
		return fmt.Errorf("partial transaction must leave a remaining amount")
	}
	if t.TransactionStatus == TxCompleted && t.TransactionRemaining != 0 {
		return fmt.Errorf("completed transaction cannot have a remaining amount")
	}
	return nil
}

// NewReference builds the external order id, e.g. PAY-20250101-1a2b3c4d.
func NewReference(now time.Time) string {
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), uuid.NewString()[:8])
}
