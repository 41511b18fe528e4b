package datatable

import "time"

// ModelFilter is one saved icontains filter per field per model path.
type ModelFilter struct {
	ID     int64  `gorm:"primaryKey"`
	Parent string `gorm:"column:parent;not null;uniqueIndex:idx_model_filters_parent_key"`
	Key    string `gorm:"column:key;not null;uniqueIndex:idx_model_filters_parent_key"`
	Value  string `gorm:"column:value"`
}

func (ModelFilter) TableName() string {
	return "model_filters"
}

// PageItems stores the per-model-path page size. The unique index keeps
// the store single-row per path so the "last match wins" read is
// deterministic.
type PageItems struct {
	ID           int64     `gorm:"primaryKey"`
	Parent       string    `gorm:"column:parent;not null;uniqueIndex"`
	ItemsPerPage int       `gorm:"column:items_per_page;default:25"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (PageItems) TableName() string {
	return "page_items"
}

// HideShowFilter is one column-visibility toggle per field per model path.
// Value true means the column is hidden.
type HideShowFilter struct {
	ID     int64  `gorm:"primaryKey"`
	Parent string `gorm:"column:parent;not null;uniqueIndex:idx_hide_show_parent_key"`
	Key    string `gorm:"column:key;not null;uniqueIndex:idx_hide_show_parent_key"`
	Value  bool   `gorm:"column:value;default:false"`
}

func (HideShowFilter) TableName() string {
	return "hide_show_filters"
}
