package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a product id has no row.
var ErrProductNotFound = errors.New("product not found")

// Repository handles product and category persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate applies catalog schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&Category{}, &Product{})
}

// Create inserts a product row. The video URL is typically attached later;
// creation never waits on media work.
func (r *Repository) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Get fetches one product with its category.
func (r *Repository) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// List returns products newest first.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListCategories returns categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// AttachVideoURL sets the product's video reference. Only the video_url
// column is touched, so a failure here cannot corrupt the rest of the row.
func (r *Repository) AttachVideoURL(ctx context.Context, id, url string) error {
	res := r.db.WithContext(ctx).
		Model(&Product{}).
		Where("id = ?", id).
		Update("video_url", url)
	if res.Error != nil {
		return fmt.Errorf("attach video url: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
