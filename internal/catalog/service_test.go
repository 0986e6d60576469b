package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tyemirov/storeapi/internal/events"
)

func TestCreateStoreValidatesName(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()

	store, err := env.service.CreateStore(ctx, "  Corner Shop ")
	require.NoError(t, err)
	require.Equal(t, "Corner Shop", store.Name)

	_, err = env.service.CreateStore(ctx, "Corner Shop")
	require.ErrorIs(t, err, ErrStoreNameTaken)

	_, err = env.service.CreateStore(ctx, " ")
	require.ErrorIs(t, err, ErrInvalidStore)

	fetched, err := env.service.GetStore(ctx, store.ID)
	require.NoError(t, err)
	require.Equal(t, store.ID, fetched.ID)

	_, err = env.service.GetStore(ctx, 999)
	require.ErrorIs(t, err, ErrStoreNotFound)
}

func TestCreateItemRequiresExistingStore(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Corner Shop")

	item, err := env.service.CreateItem(ctx, ItemInput{Name: "Chair", Price: 15.5, StoreID: store.ID})
	require.NoError(t, err)
	require.NotZero(t, item.ID)
	require.Empty(t, item.Tags)

	_, err = env.service.CreateItem(ctx, ItemInput{Name: "Chair", Price: 15.5, StoreID: 999})
	require.ErrorIs(t, err, ErrStoreNotFound)

	invalidInputs := []ItemInput{
		{Name: "", Price: 1, StoreID: store.ID},
		{Name: "Chair", Price: -1, StoreID: store.ID},
		{Name: "Chair", Price: 1, StoreID: 0},
	}
	for _, input := range invalidInputs {
		_, err := env.service.CreateItem(ctx, input)
		require.ErrorIs(t, err, ErrInvalidItem, "input %+v", input)
	}
}

func TestCreateAndListTags(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Corner Shop")
	otherStore := env.seedStore(t, "Market")

	first := env.seedTag(t, store.ID, "sale")
	second := env.seedTag(t, store.ID, "new")
	env.seedTag(t, otherStore.ID, "elsewhere")

	tags, err := env.service.ListTags(ctx, store.ID)
	require.NoError(t, err)
	require.Equal(t, []Tag{*first, *second}, tags)

	_, err = env.service.CreateTag(ctx, 999, "orphan")
	require.ErrorIs(t, err, ErrStoreNotFound)
	_, err = env.service.CreateTag(ctx, store.ID, "  ")
	require.ErrorIs(t, err, ErrInvalidTag)
	_, err = env.service.ListTags(ctx, 999)
	require.ErrorIs(t, err, ErrStoreNotFound)

	created := env.publisher.EventsOfType(events.TypeTagCreated)
	require.Len(t, created, 3)
	require.Equal(t, events.TopicTagEvents, created[0].Topic)
}

func TestLinkTagSameStore(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Corner Shop")
	item := env.seedItem(t, store.ID, "Chair")
	tag := env.seedTag(t, store.ID, "furniture")

	linked, err := env.service.LinkTag(ctx, item.ID, tag.ID)
	require.NoError(t, err)
	require.Equal(t, tag.ID, linked.ID)

	_, err = env.service.LinkTag(ctx, item.ID, tag.ID)
	require.NoError(t, err, "linking an existing pair is idempotent")

	fetched, err := env.service.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, []Tag{*tag}, fetched.Tags)
	require.Len(t, env.publisher.EventsOfType(events.TypeTagLinked), 2)
}

func TestLinkTagRejectsCrossStore(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	storeA := env.seedStore(t, "A")
	storeB := env.seedStore(t, "B")
	item := env.seedItem(t, storeA.ID, "Chair")
	foreignTag := env.seedTag(t, storeB.ID, "furniture")

	_, err := env.service.LinkTag(ctx, item.ID, foreignTag.ID)
	require.ErrorIs(t, err, ErrCrossStore)

	fetched, err := env.service.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Empty(t, fetched.Tags)
	require.Empty(t, env.publisher.EventsOfType(events.TypeTagLinked))
}

func TestLinkTagLookupFailures(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Corner Shop")
	item := env.seedItem(t, store.ID, "Chair")
	tag := env.seedTag(t, store.ID, "furniture")

	_, err := env.service.LinkTag(ctx, 999, tag.ID)
	require.ErrorIs(t, err, ErrItemNotFound)
	_, err = env.service.LinkTag(ctx, item.ID, 999)
	require.ErrorIs(t, err, ErrTagNotFound)
	_, err = env.service.LinkTag(ctx, 998, 999)
	require.ErrorIs(t, err, ErrItemNotFound, "item is resolved before tag")
}

func TestUnlinkTag(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Corner Shop")
	otherStore := env.seedStore(t, "Market")
	item := env.seedItem(t, store.ID, "Chair")
	tag := env.seedTag(t, store.ID, "furniture")
	keptTag := env.seedTag(t, store.ID, "wood")
	foreignTag := env.seedTag(t, otherStore.ID, "foreign")

	_, err := env.service.LinkTag(ctx, item.ID, tag.ID)
	require.NoError(t, err)
	_, err = env.service.LinkTag(ctx, item.ID, keptTag.ID)
	require.NoError(t, err)

	unlinkedItem, unlinkedTag, err := env.service.UnlinkTag(ctx, item.ID, tag.ID)
	require.NoError(t, err)
	require.Equal(t, item.ID, unlinkedItem.ID)
	require.Equal(t, tag.ID, unlinkedTag.ID)
	require.Equal(t, []Tag{*keptTag}, unlinkedItem.Tags)

	_, _, err = env.service.UnlinkTag(ctx, item.ID, tag.ID)
	require.ErrorIs(t, err, ErrLinkNotFound)

	_, _, err = env.service.UnlinkTag(ctx, item.ID, foreignTag.ID)
	require.ErrorIs(t, err, ErrCrossStore)

	require.Len(t, env.publisher.EventsOfType(events.TypeTagUnlinked), 1)
}

func TestDeleteTagOnlyWhenUnlinked(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Corner Shop")
	item := env.seedItem(t, store.ID, "Chair")
	tag := env.seedTag(t, store.ID, "furniture")

	_, err := env.service.LinkTag(ctx, item.ID, tag.ID)
	require.NoError(t, err)

	err = env.service.DeleteTag(ctx, tag.ID)
	require.ErrorIs(t, err, ErrTagInUse)
	stillThere, err := env.service.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	require.Equal(t, tag.Name, stillThere.Name)

	_, _, err = env.service.UnlinkTag(ctx, item.ID, tag.ID)
	require.NoError(t, err)
	require.NoError(t, env.service.DeleteTag(ctx, tag.ID))

	_, err = env.service.GetTag(ctx, tag.ID)
	require.ErrorIs(t, err, ErrTagNotFound)
	require.ErrorIs(t, env.service.DeleteTag(ctx, tag.ID), ErrTagNotFound)
	require.Len(t, env.publisher.EventsOfType(events.TypeTagDeleted), 1)
}

func TestCatalogPersistenceFailure(t *testing.T) {
	env := newCatalogTestEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Corner Shop")
	require.NoError(t, env.database.Close())

	_, err := env.service.CreateTag(ctx, store.ID, "sale")
	require.ErrorIs(t, err, ErrPersistence)
	_, err = env.service.GetTag(ctx, 1)
	require.ErrorIs(t, err, ErrPersistence)
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
	_, err = NewRepository(context.Background(), nil)
	require.Error(t, err)
}
