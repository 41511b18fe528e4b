package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
	userDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/user"
)

// Transaction is the persisted shape of a ledger entry. The category
// reference is nullable and survives category deletion (FK set-null);
// the owner reference cascades on user deletion.
type Transaction struct {
	ID              int64           `gorm:"primaryKey"`
	CategoryID      *int64          `gorm:"column:category_id"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(19,2);default:0"`
	DateTime        time.Time       `gorm:"column:date_time"`
	PaymentType     string          `gorm:"column:payment_type;default:Account"`
	TransactionType string          `gorm:"column:transaction_type;default:Income"`
	Remarks         string          `gorm:"column:remarks"`
	CreatedBy       int64           `gorm:"column:created_by;not null"`

	Category *categoryDatamodel.Category `gorm:"foreignKey:CategoryID"`
	Creator  *userDatamodel.User         `gorm:"foreignKey:CreatedBy"`
}

func (Transaction) TableName() string {
	return "transactions"
}
