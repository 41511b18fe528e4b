package product

// Product is a chartable item with an optional price. It carries no
// ownership column, so every requester sees the full table.
type Product struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"column:name;not null"`
	Info  string `gorm:"column:info;default:''"`
	Price *int64 `gorm:"column:price"`
}

func (Product) TableName() string {
	return "products"
}
