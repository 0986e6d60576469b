package catalog

import "errors"

var (
	// ErrStoreNotFound indicates no store matched the identifier.
	ErrStoreNotFound = errors.New("catalog.store_not_found")
	// ErrItemNotFound indicates no item matched the identifier.
	ErrItemNotFound = errors.New("catalog.item_not_found")
	// ErrTagNotFound indicates no tag matched the identifier.
	ErrTagNotFound = errors.New("catalog.tag_not_found")
	// ErrLinkNotFound indicates the item and tag are not linked.
	ErrLinkNotFound = errors.New("catalog.link_not_found")
	// ErrCrossStore indicates an item and a tag from different stores.
	ErrCrossStore = errors.New("catalog.cross_store")
	// ErrTagInUse indicates a delete of a tag that still has linked items.
	ErrTagInUse = errors.New("catalog.tag_in_use")
	// ErrStoreNameTaken indicates a store with the same name exists.
	ErrStoreNameTaken = errors.New("catalog.store_name_taken")
	// ErrInvalidStore indicates a store payload without a name.
	ErrInvalidStore = errors.New("catalog.invalid_store")
	// ErrInvalidItem indicates an item payload with a missing name, store, or a negative price.
	ErrInvalidItem = errors.New("catalog.invalid_item")
	// ErrInvalidTag indicates a tag payload without a name.
	ErrInvalidTag = errors.New("catalog.invalid_tag")
	// ErrPersistence wraps storage failures.
	ErrPersistence = errors.New("catalog.persistence")
)
