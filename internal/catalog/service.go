package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tyemirov/storeapi/internal/events"
	"go.uber.org/zap"
)

// Service manages stores, items and tags, and keeps item/tag links inside one store.
type Service struct {
	repository *Repository
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewService wires the association manager. A nil publisher discards events.
func NewService(repository *Repository, publisher events.Publisher, logger *zap.Logger) (*Service, error) {
	if repository == nil {
		return nil, errors.New("catalog.service.new: repository is required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repository: repository, publisher: publisher, logger: logger}, nil
}

// CreateStore adds a store with a unique name.
func (service *Service) CreateStore(ctx context.Context, name string) (*Store, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("catalog.create_store: %w", ErrInvalidStore)
	}
	return service.repository.CreateStore(ctx, trimmed)
}

// GetStore returns a store by id.
func (service *Service) GetStore(ctx context.Context, storeID uint) (*Store, error) {
	return service.repository.FindStore(ctx, storeID)
}

// CreateItem adds an item to an existing store.
func (service *Service) CreateItem(ctx context.Context, input ItemInput) (*Item, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.StoreID == 0 || input.Price < 0 || math.IsNaN(input.Price) || math.IsInf(input.Price, 0) {
		return nil, fmt.Errorf("catalog.create_item: %w", ErrInvalidItem)
	}
	var created *Item
	err := service.repository.Transaction(ctx, func(transactional *Repository) error {
		if _, err := transactional.FindStore(ctx, input.StoreID); err != nil {
			return err
		}
		item, err := transactional.CreateItem(ctx, input)
		if err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog.create_item: %w", err)
	}
	return created, nil
}

// GetItem returns an item together with its linked tags.
func (service *Service) GetItem(ctx context.Context, itemID uint) (*Item, error) {
	item, err := service.repository.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	tags, err := service.repository.ListItemTags(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	return item, nil
}

// CreateTag adds an unlinked tag to an existing store.
func (service *Service) CreateTag(ctx context.Context, storeID uint, name string) (*Tag, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("catalog.create_tag: %w", ErrInvalidTag)
	}
	var created *Tag
	err := service.repository.Transaction(ctx, func(transactional *Repository) error {
		if _, err := transactional.FindStore(ctx, storeID); err != nil {
			return err
		}
		tag, err := transactional.CreateTag(ctx, storeID, trimmed)
		if err != nil {
			return err
		}
		created = tag
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog.create_tag: %w", err)
	}
	service.publish(ctx, events.TypeTagCreated, created.ID, map[string]any{
		"tag_id":   created.ID,
		"store_id": created.StoreID,
		"name":     created.Name,
	})
	return created, nil
}

// ListTags returns the tags of an existing store.
func (service *Service) ListTags(ctx context.Context, storeID uint) ([]Tag, error) {
	if _, err := service.repository.FindStore(ctx, storeID); err != nil {
		return nil, fmt.Errorf("catalog.list_tags: %w", err)
	}
	tags, err := service.repository.ListStoreTags(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("catalog.list_tags: %w", err)
	}
	return tags, nil
}

// GetTag returns a tag by id.
func (service *Service) GetTag(ctx context.Context, tagID uint) (*Tag, error) {
	return service.repository.FindTag(ctx, tagID)
}

// LinkTag links an item and a tag of the same store. Linking an existing pair is a no-op.
func (service *Service) LinkTag(ctx context.Context, itemID uint, tagID uint) (*Tag, error) {
	var linked *Tag
	err := service.repository.Transaction(ctx, func(transactional *Repository) error {
		item, tag, err := loadSameStorePair(ctx, transactional, itemID, tagID)
		if err != nil {
			return err
		}
		if err := transactional.InsertLink(ctx, item.ID, tag.ID); err != nil {
			return err
		}
		linked = tag
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog.link_tag: %w", err)
	}
	service.publish(ctx, events.TypeTagLinked, tagID, map[string]any{
		"tag_id":   tagID,
		"item_id":  itemID,
		"store_id": linked.StoreID,
	})
	return linked, nil
}

// UnlinkTag removes the link between an item and a tag of the same store.
func (service *Service) UnlinkTag(ctx context.Context, itemID uint, tagID uint) (*Item, *Tag, error) {
	var (
		unlinkedItem *Item
		unlinkedTag  *Tag
	)
	err := service.repository.Transaction(ctx, func(transactional *Repository) error {
		item, tag, err := loadSameStorePair(ctx, transactional, itemID, tagID)
		if err != nil {
			return err
		}
		if err := transactional.DeleteLink(ctx, item.ID, tag.ID); err != nil {
			return err
		}
		tags, err := transactional.ListItemTags(ctx, item.ID)
		if err != nil {
			return err
		}
		item.Tags = tags
		unlinkedItem, unlinkedTag = item, tag
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("catalog.unlink_tag: %w", err)
	}
	service.publish(ctx, events.TypeTagUnlinked, tagID, map[string]any{
		"tag_id":   tagID,
		"item_id":  itemID,
		"store_id": unlinkedTag.StoreID,
	})
	return unlinkedItem, unlinkedTag, nil
}

// DeleteTag removes a tag that has no linked items.
func (service *Service) DeleteTag(ctx context.Context, tagID uint) error {
	var storeID uint
	err := service.repository.Transaction(ctx, func(transactional *Repository) error {
		tag, err := transactional.LockTag(ctx, tagID)
		if err != nil {
			return err
		}
		linkCount, err := transactional.CountTagLinks(ctx, tag.ID)
		if err != nil {
			return err
		}
		if linkCount > 0 {
			return ErrTagInUse
		}
		storeID = tag.StoreID
		return transactional.DeleteTag(ctx, tag.ID)
	})
	if err != nil {
		return fmt.Errorf("catalog.delete_tag: %w", err)
	}
	service.publish(ctx, events.TypeTagDeleted, tagID, map[string]any{
		"tag_id":   tagID,
		"store_id": storeID,
	})
	return nil
}

// loadSameStorePair resolves the item first, then locks the tag, then compares stores.
func loadSameStorePair(ctx context.Context, transactional *Repository, itemID uint, tagID uint) (*Item, *Tag, error) {
	item, err := transactional.FindItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	tag, err := transactional.LockTag(ctx, tagID)
	if err != nil {
		return nil, nil, err
	}
	if item.StoreID != tag.StoreID {
		return nil, nil, ErrCrossStore
	}
	return item, tag, nil
}

func (service *Service) publish(ctx context.Context, eventType string, tagID uint, attributes map[string]any) {
	event := events.NewEvent(events.TopicTagEvents, eventType, strconv.FormatUint(uint64(tagID), 10), attributes)
	if err := service.publisher.Publish(ctx, event); err != nil {
		service.logger.Warn("event publish failed",
			zap.String("code", "catalog.events.publish_failed"),
			zap.String("type", eventType),
			zap.Error(err))
	}
}
