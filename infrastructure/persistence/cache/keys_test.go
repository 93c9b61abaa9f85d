package cache

import (
	"testing"

	"filing-backend/domain/core/entities"
	infracache "filing-backend/infrastructure/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyScheme(t *testing.T) {
	keys := NewKeyScheme(RepositoryName)

	assert.Equal(t, "OrderRepository:id:42", keys.ByID("42"))
	assert.Equal(t, "OrderRepository:orderNumber:ORD-1", keys.ByOrderNumber("ORD-1"))
	assert.Equal(t, "OrderRepository:id:42:withRelations", keys.ByIDWithRelations("42"))
	assert.Equal(t, "OrderRepository:customerId:c-1", keys.ByCustomer("c-1"))
}

func TestKeyScheme_IdentifiersCannotForgeKeys(t *testing.T) {
	keys := NewKeyScheme(RepositoryName)

	assert.NotEqual(t, keys.ByIDWithRelations("42"), keys.ByID("42:withRelations"))
	assert.Equal(t, "OrderRepository:id:42%3AwithRelations", keys.ByID("42:withRelations"))
	assert.Equal(t, "OrderRepository:id:4%2A2", keys.ByID("4*2"))
	assert.Equal(t, "OrderRepository:id:50%2525", keys.ByID("50%25"))
	assert.NotEqual(t, keys.ByID("a%3Ab"), keys.ByID("a:b"))
}

func TestKeyScheme_VariantsPattern(t *testing.T) {
	keys := NewKeyScheme(RepositoryName)

	assert.Equal(t, "OrderRepository:id:42:*", keys.VariantsPattern("42"))
	assert.Equal(t, "OrderRepository:id:4%2A2:*", keys.VariantsPattern("4*2"))

	// Variants of one id never match another id's keys
	pattern, err := infracache.CompilePattern(keys.VariantsPattern("42"))
	require.NoError(t, err)
	assert.True(t, pattern.Match(keys.ByIDWithRelations("42")))
	assert.False(t, pattern.Match(keys.ByID("42:withRelations")))
}

func TestKeyScheme_OrderKeys(t *testing.T) {
	keys := NewKeyScheme(RepositoryName)
	order := &entities.Order{ID: "42", OrderNumber: "ORD-1", CustomerID: "c-1"}

	assert.ElementsMatch(t, []string{
		"OrderRepository:id:42",
		"OrderRepository:id:42:withRelations",
		"OrderRepository:orderNumber:ORD-1",
		"OrderRepository:customerId:c-1",
	}, keys.OrderKeys(order))

	assert.Len(t, keys.OrderKeys(&entities.Order{ID: "42"}), 2)
}
