package catalog

// Store owns items and tags. Names are unique.
type Store struct {
	ID   uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;uniqueIndex;not null" json:"name"`
}

// TableName pins the stores table name.
func (Store) TableName() string {
	return "stores"
}

// Item belongs to one store. Tags is populated on reads only.
type Item struct {
	ID      uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name    string  `gorm:"column:name;not null" json:"name"`
	Price   float64 `gorm:"column:price;not null" json:"price"`
	StoreID uint    `gorm:"column:store_id;not null;index" json:"store_id"`
	Tags    []Tag   `gorm:"-" json:"tags"`
}

// TableName pins the items table name.
func (Item) TableName() string {
	return "items"
}

// Tag belongs to one store and may be linked to items of that store.
type Tag struct {
	ID      uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"column:name;not null" json:"name"`
	StoreID uint   `gorm:"column:store_id;not null;index" json:"store_id"`
}

// TableName pins the tags table name.
func (Tag) TableName() string {
	return "tags"
}

// ItemTag is one row of the item/tag join table.
type ItemTag struct {
	ItemID uint `gorm:"column:item_id;primaryKey;autoIncrement:false"`
	TagID  uint `gorm:"column:tag_id;primaryKey;autoIncrement:false;index"`
}

// TableName pins the join table name.
func (ItemTag) TableName() string {
	return "items_tags"
}

// ItemInput carries the fields accepted when creating an item.
type ItemInput struct {
	Name    string
	Price   float64
	StoreID uint
}
