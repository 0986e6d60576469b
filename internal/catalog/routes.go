package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storeapi/internal/httperr"
	"go.uber.org/zap"
)

const (
	messageStoreNotFound  = "Store not found."
	messageItemNotFound   = "Item not found."
	messageTagNotFound    = "Tag not found."
	messageLinkNotFound   = "Item is not linked with this tag."
	messageCrossStore     = "Cannot link item with tag from different stores"
	messageTagInUse       = "Tag is used from some items"
	messageStoreNameTaken = "A store with that name already exists."
	messageInvalidStore   = "Store name is required."
	messageInvalidItem    = "Item name, non-negative price and store_id are required."
	messageInvalidTag     = "Tag name is required."
)

type nameRequest struct {
	Name string `json:"name"`
}

type itemRequest struct {
	Name    string   `json:"name"`
	Price   *float64 `json:"price"`
	StoreID uint     `json:"store_id"`
}

// MountCatalogRoutes registers store, item and tag routes. requireFreshAccess guards item creation.
func MountCatalogRoutes(router gin.IRouter, service *Service, requireFreshAccess gin.HandlerFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers := &catalogHandlers{service: service, logger: logger}

	router.POST("/store", handlers.createStore)
	router.GET("/store/:store_id", handlers.getStore)
	router.GET("/store/:store_id/tag", handlers.listTags)
	router.POST("/store/:store_id/tag", handlers.createTag)

	router.POST("/item", requireFreshAccess, handlers.createItem)
	router.GET("/item/:item_id", handlers.getItem)
	router.POST("/item/:item_id/tag/:tag_id", handlers.linkTag)
	router.DELETE("/item/:item_id/tag/:tag_id", handlers.unlinkTag)

	router.GET("/tag/:tag_id", handlers.getTag)
	router.DELETE("/tag/:tag_id", handlers.deleteTag)
}

type catalogHandlers struct {
	service *Service
	logger  *zap.Logger
}

func (handlers *catalogHandlers) createStore(contextGin *gin.Context) {
	var inbound nameRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidStore)
		return
	}
	store, err := handlers.service.CreateStore(contextGin.Request.Context(), inbound.Name)
	if err != nil {
		handlers.writeError(contextGin, "catalog.store.create", err)
		return
	}
	contextGin.JSON(http.StatusCreated, store)
}

func (handlers *catalogHandlers) getStore(contextGin *gin.Context) {
	storeID, ok := parseID(contextGin, "store_id", messageStoreNotFound)
	if !ok {
		return
	}
	store, err := handlers.service.GetStore(contextGin.Request.Context(), storeID)
	if err != nil {
		handlers.writeError(contextGin, "catalog.store.get", err)
		return
	}
	contextGin.JSON(http.StatusOK, store)
}

func (handlers *catalogHandlers) listTags(contextGin *gin.Context) {
	storeID, ok := parseID(contextGin, "store_id", messageStoreNotFound)
	if !ok {
		return
	}
	tags, err := handlers.service.ListTags(contextGin.Request.Context(), storeID)
	if err != nil {
		handlers.writeError(contextGin, "catalog.tag.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, tags)
}

func (handlers *catalogHandlers) createTag(contextGin *gin.Context) {
	storeID, ok := parseID(contextGin, "store_id", messageStoreNotFound)
	if !ok {
		return
	}
	var inbound nameRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidTag)
		return
	}
	tag, err := handlers.service.CreateTag(contextGin.Request.Context(), storeID, inbound.Name)
	if err != nil {
		handlers.writeError(contextGin, "catalog.tag.create", err)
		return
	}
	contextGin.JSON(http.StatusCreated, tag)
}

func (handlers *catalogHandlers) createItem(contextGin *gin.Context) {
	var inbound itemRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil || inbound.Price == nil {
		httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidItem)
		return
	}
	item, err := handlers.service.CreateItem(contextGin.Request.Context(), ItemInput{
		Name:    inbound.Name,
		Price:   *inbound.Price,
		StoreID: inbound.StoreID,
	})
	if err != nil {
		handlers.writeError(contextGin, "catalog.item.create", err)
		return
	}
	contextGin.JSON(http.StatusCreated, item)
}

func (handlers *catalogHandlers) getItem(contextGin *gin.Context) {
	itemID, ok := parseID(contextGin, "item_id", messageItemNotFound)
	if !ok {
		return
	}
	item, err := handlers.service.GetItem(contextGin.Request.Context(), itemID)
	if err != nil {
		handlers.writeError(contextGin, "catalog.item.get", err)
		return
	}
	contextGin.JSON(http.StatusOK, item)
}

func (handlers *catalogHandlers) linkTag(contextGin *gin.Context) {
	itemID, tagID, ok := parseLinkIDs(contextGin)
	if !ok {
		return
	}
	tag, err := handlers.service.LinkTag(contextGin.Request.Context(), itemID, tagID)
	if err != nil {
		handlers.writeError(contextGin, "catalog.tag.link", err)
		return
	}
	contextGin.JSON(http.StatusCreated, tag)
}

func (handlers *catalogHandlers) unlinkTag(contextGin *gin.Context) {
	itemID, tagID, ok := parseLinkIDs(contextGin)
	if !ok {
		return
	}
	item, tag, err := handlers.service.UnlinkTag(contextGin.Request.Context(), itemID, tagID)
	if err != nil {
		handlers.writeError(contextGin, "catalog.tag.unlink", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"message": "Link removed", "item": item, "tag": tag})
}

func (handlers *catalogHandlers) getTag(contextGin *gin.Context) {
	tagID, ok := parseID(contextGin, "tag_id", messageTagNotFound)
	if !ok {
		return
	}
	tag, err := handlers.service.GetTag(contextGin.Request.Context(), tagID)
	if err != nil {
		handlers.writeError(contextGin, "catalog.tag.get", err)
		return
	}
	contextGin.JSON(http.StatusOK, tag)
}

func (handlers *catalogHandlers) deleteTag(contextGin *gin.Context) {
	tagID, ok := parseID(contextGin, "tag_id", messageTagNotFound)
	if !ok {
		return
	}
	if err := handlers.service.DeleteTag(contextGin.Request.Context(), tagID); err != nil {
		handlers.writeError(contextGin, "catalog.tag.delete", err)
		return
	}
	contextGin.JSON(http.StatusAccepted, gin.H{"message": "Tag deleted"})
}

func (handlers *catalogHandlers) writeError(contextGin *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, ErrStoreNotFound):
		httperr.Abort(contextGin, http.StatusNotFound, messageStoreNotFound)
	case errors.Is(err, ErrItemNotFound):
		httperr.Abort(contextGin, http.StatusNotFound, messageItemNotFound)
	case errors.Is(err, ErrTagNotFound):
		httperr.Abort(contextGin, http.StatusNotFound, messageTagNotFound)
	case errors.Is(err, ErrLinkNotFound):
		httperr.Abort(contextGin, http.StatusNotFound, messageLinkNotFound)
	case errors.Is(err, ErrCrossStore):
		httperr.Abort(contextGin, http.StatusBadRequest, messageCrossStore)
	case errors.Is(err, ErrTagInUse):
		httperr.Abort(contextGin, http.StatusBadRequest, messageTagInUse)
	case errors.Is(err, ErrStoreNameTaken):
		httperr.Abort(contextGin, http.StatusConflict, messageStoreNameTaken)
	case errors.Is(err, ErrInvalidStore):
		httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidStore)
	case errors.Is(err, ErrInvalidItem):
		httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidItem)
	case errors.Is(err, ErrInvalidTag):
		httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidTag)
	default:
		handlers.logger.Error("catalog request failed", zap.String("code", code+".persistence"), zap.Error(err))
		httperr.AbortInternal(contextGin)
	}
}

func parseID(contextGin *gin.Context, name string, notFoundMessage string) (uint, bool) {
	parsed, err := strconv.ParseUint(contextGin.Param(name), 10, 64)
	if err != nil || parsed == 0 {
		httperr.Abort(contextGin, http.StatusNotFound, notFoundMessage)
		return 0, false
	}
	return uint(parsed), true
}

func parseLinkIDs(contextGin *gin.Context) (uint, uint, bool) {
	itemID, ok := parseID(contextGin, "item_id", messageItemNotFound)
	if !ok {
		return 0, 0, false
	}
	tagID, ok := parseID(contextGin, "tag_id", messageTagNotFound)
	if !ok {
		return 0, 0, false
	}
	return itemID, tagID, true
}
