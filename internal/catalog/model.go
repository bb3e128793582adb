package catalog

import "time"

// Product is a marketplace listing. VideoURL is nullable: a product is
// visible before (and regardless of whether) its video is attached.
type Product struct {
	ID          string   `gorm:"type:varchar(40);primaryKey" json:"id"`
	Title       string   `gorm:"type:varchar(255);not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Price       float64  `gorm:"not null" json:"price"`
	CategoryID  string   `gorm:"type:varchar(40);index" json:"category_id"`
	Condition   string   `gorm:"type:varchar(32)" json:"condition"`
	Location    string   `gorm:"type:varchar(255)" json:"location"`
	Images      []string `gorm:"serializer:json" json:"images"`
	VideoURL    *string  `gorm:"column:video_url;type:text" json:"video_url,omitempty"`

	Category  *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// Category groups products.
type Category struct {
	ID          string    `gorm:"type:varchar(40);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}
