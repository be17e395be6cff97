package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ywfa-shop/internal/model"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	FindByCode(ctx context.Context, code string) (*model.Product, error)
	FindByCodes(ctx context.Context, codes []string) ([]*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListAvailable(ctx context.Context, categorySlug string) ([]*model.Product, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Seed(ctx context.Context) error {
	categories := []model.Category{
		{Name: "Booklets", Slug: "booklets"},
		{Name: "Forms", Slug: "forms"},
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&categories).Error; err != nil {
		return err
	}

	var booklets, forms model.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", "booklets").First(&booklets).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("slug = ?", "forms").First(&forms).Error; err != nil {
		return err
	}

	products := []model.Product{
		{CategoryID: booklets.ID, Code: "GUIDE", Title: "Funeral Planning Guide",
			Detail: "A step by step guide to arranging a funeral on your own terms.",
			Price:  decimal.RequireFromString("15.00"), Available: true, Shipping: true},
		{CategoryID: booklets.ID, Code: "RIGHTS", Title: "Know Your Rights Booklet",
			Detail: "Your legal rights when dealing with funeral providers.",
			Price:  decimal.RequireFromString("19.00"), Available: true, Shipping: true},
		{CategoryID: forms.ID, Code: "WISHES-PDF", Title: "My Wishes Form (download)",
			Detail: "Printable form for recording funeral wishes.",
			Price:  decimal.RequireFromString("5.00"), Available: true, Shipping: false},
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&products).Error
}

func (r *productRepoImpl) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) FindByCodes(ctx context.Context, codes []string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("code IN ?", codes).
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) ListAvailable(ctx context.Context, categorySlug string) ([]*model.Product, error) {
	q := r.db.WithContext(ctx).
		Where("available = ?", true).
		Order("code")

	if categorySlug != "" {
		category, err := r.FindCategoryBySlug(ctx, categorySlug)
		if err != nil {
			return nil, err
		}
		q = q.Where("category_id = ?", category.ID)
	}

	var products []*model.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	err := r.db.WithContext(ctx).
		Order("name").
		Find(&categories).Error

	if err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *productRepoImpl) FindCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&category).Error

	if err != nil {
		return nil, err
	}

	return &category, nil
}
