package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyemirov/storeapi/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository runs explicit catalog queries. Inside Transaction every call uses the transaction handle.
type Repository struct {
	db *gorm.DB
}

// NewRepository migrates the catalog tables and returns the repository.
func NewRepository(ctx context.Context, db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("catalog.repository.new: database handle is required")
	}
	if err := db.WithContext(ctx).AutoMigrate(&Store{}, &Item{}, &Tag{}, &ItemTag{}); err != nil {
		return nil, fmt.Errorf("catalog.repository.migrate: %w", err)
	}
	return &Repository{db: db}, nil
}

// Transaction runs fn against a repository bound to one database transaction.
func (repository *Repository) Transaction(ctx context.Context, fn func(transactional *Repository) error) error {
	var fnErr error
	err := repository.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&Repository{db: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed
		return persistenceError("transaction", err)
	}
	return err
}

// CreateStore inserts a store; a duplicate name maps to ErrStoreNameTaken.
func (repository *Repository) CreateStore(ctx context.Context, name string) (*Store, error) {
	store := Store{Name: name}
	if err := repository.db.WithContext(ctx).Create(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("catalog.repository.create_store: %w", ErrStoreNameTaken)
		}
		return nil, persistenceError("create_store", err)
	}
	return &store, nil
}

// FindStore loads a store by id.
func (repository *Repository) FindStore(ctx context.Context, storeID uint) (*Store, error) {
	var store Store
	if err := repository.db.WithContext(ctx).Where("id = ?", storeID).Take(&store).Error; err != nil {
		return nil, lookupError("find_store", err, ErrStoreNotFound)
	}
	return &store, nil
}

// CreateItem inserts an item.
func (repository *Repository) CreateItem(ctx context.Context, input ItemInput) (*Item, error) {
	item := Item{Name: input.Name, Price: input.Price, StoreID: input.StoreID}
	if err := repository.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, persistenceError("create_item", err)
	}
	item.Tags = []Tag{}
	return &item, nil
}

// FindItem loads an item by id without its tags.
func (repository *Repository) FindItem(ctx context.Context, itemID uint) (*Item, error) {
	var item Item
	if err := repository.db.WithContext(ctx).Where("id = ?", itemID).Take(&item).Error; err != nil {
		return nil, lookupError("find_item", err, ErrItemNotFound)
	}
	return &item, nil
}

// ListItemTags returns the tags linked to an item, ordered by id.
func (repository *Repository) ListItemTags(ctx context.Context, itemID uint) ([]Tag, error) {
	tags := make([]Tag, 0)
	err := repository.db.WithContext(ctx).
		Joins("JOIN items_tags ON items_tags.tag_id = tags.id").
		Where("items_tags.item_id = ?", itemID).
		Order("tags.id ASC").
		Find(&tags).Error
	if err != nil {
		return nil, persistenceError("list_item_tags", err)
	}
	return tags, nil
}

// CreateTag inserts a tag.
func (repository *Repository) CreateTag(ctx context.Context, storeID uint, name string) (*Tag, error) {
	tag := Tag{Name: name, StoreID: storeID}
	if err := repository.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, persistenceError("create_tag", err)
	}
	return &tag, nil
}

// ListStoreTags returns the tags of a store, ordered by id.
func (repository *Repository) ListStoreTags(ctx context.Context, storeID uint) ([]Tag, error) {
	tags := make([]Tag, 0)
	if err := repository.db.WithContext(ctx).Where("store_id = ?", storeID).Order("id ASC").Find(&tags).Error; err != nil {
		return nil, persistenceError("list_store_tags", err)
	}
	return tags, nil
}

// FindTag loads a tag by id.
func (repository *Repository) FindTag(ctx context.Context, tagID uint) (*Tag, error) {
	var tag Tag
	if err := repository.db.WithContext(ctx).Where("id = ?", tagID).Take(&tag).Error; err != nil {
		return nil, lookupError("find_tag", err, ErrTagNotFound)
	}
	return &tag, nil
}

// LockTag loads a tag and, on PostgreSQL, holds its row lock until the transaction ends.
func (repository *Repository) LockTag(ctx context.Context, tagID uint) (*Tag, error) {
	query := repository.db.WithContext(ctx)
	if storage.IsPostgres(repository.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var tag Tag
	if err := query.Where("id = ?", tagID).Take(&tag).Error; err != nil {
		return nil, lookupError("lock_tag", err, ErrTagNotFound)
	}
	return &tag, nil
}

// InsertLink adds a join row; an existing link is left untouched.
func (repository *Repository) InsertLink(ctx context.Context, itemID uint, tagID uint) error {
	link := ItemTag{ItemID: itemID, TagID: tagID}
	if err := repository.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return persistenceError("insert_link", err)
	}
	return nil
}

// DeleteLink removes a join row; ErrLinkNotFound when no row matched.
func (repository *Repository) DeleteLink(ctx context.Context, itemID uint, tagID uint) error {
	result := repository.db.WithContext(ctx).Where("item_id = ? AND tag_id = ?", itemID, tagID).Delete(&ItemTag{})
	if result.Error != nil {
		return persistenceError("delete_link", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("catalog.repository.delete_link: %w", ErrLinkNotFound)
	}
	return nil
}

// CountTagLinks counts the items linked to a tag.
func (repository *Repository) CountTagLinks(ctx context.Context, tagID uint) (int64, error) {
	var count int64
	if err := repository.db.WithContext(ctx).Model(&ItemTag{}).Where("tag_id = ?", tagID).Count(&count).Error; err != nil {
		return 0, persistenceError("count_tag_links", err)
	}
	return count, nil
}

// DeleteTag removes a tag row.
func (repository *Repository) DeleteTag(ctx context.Context, tagID uint) error {
	result := repository.db.WithContext(ctx).Where("id = ?", tagID).Delete(&Tag{})
	if result.Error != nil {
		return persistenceError("delete_tag", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("catalog.repository.delete_tag: %w", ErrTagNotFound)
	}
	return nil
}

func lookupError(operation string, err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("catalog.repository.%s: %w", operation, notFound)
	}
	return persistenceError(operation, err)
}

func persistenceError(operation string, err error) error {
	return fmt.Errorf("catalog.repository.%s: %w: %w", operation, ErrPersistence, err)
}
