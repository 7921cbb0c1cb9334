package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType is an admin-editable catalogue entry offered to users when recording a payment.
// The rate table does not depend on it; the catalogue only tells whether a recorded type is known.
type TransactionType struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_tx_type_name_category" json:"name"`
	TaxpayerCategory string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_tx_type_name_category;index" json:"taxpayer_category"`
	Description      string    `gorm:"type:text" json:"description"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	SortOrder        int       `gorm:"default:0" json:"sort_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
