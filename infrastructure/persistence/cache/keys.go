package cache

import (
	"strings"

	"filing-backend/domain/core/entities"
	infracache "filing-backend/infrastructure/cache"
)

// RepositoryName namespaces every key written by the order repository.
const RepositoryName = "OrderRepository"

// Lookup dimensions. They double as metric labels.
const (
	DimensionID          = "id"
	DimensionOrderNumber = "orderNumber"
	DimensionCustomer    = "customerId"

	VariantWithRelations = "withRelations"
)

// identifierEscaper keeps identifiers from forging separators or wildcards,
// so no identifier can produce another lookup's key.
var identifierEscaper = strings.NewReplacer(
	"%", "%25",
	":", "%3A",
	infracache.Wildcard, "%2A",
)

// KeyScheme builds namespaced keys of the form
// <repository>:<dimension>:<identifier>[:<variant>]. Identifiers are
// escaped; dimensions and variants are fixed tokens.
type KeyScheme struct {
	repository string
}

// NewKeyScheme returns the scheme for a repository name.
func NewKeyScheme(repository string) KeyScheme {
	return KeyScheme{repository: repository}
}

func (k KeyScheme) build(dimension, identifier string, variants ...string) string {
	parts := append([]string{k.repository, dimension, identifierEscaper.Replace(identifier)}, variants...)
	return strings.Join(parts, ":")
}

// ByID is the primary key entry.
func (k KeyScheme) ByID(id string) string {
	return k.build(DimensionID, id)
}

// ByOrderNumber is the alternate key entry.
func (k KeyScheme) ByOrderNumber(orderNumber string) string {
	return k.build(DimensionOrderNumber, orderNumber)
}

// ByIDWithRelations is the order plus its line items.
func (k KeyScheme) ByIDWithRelations(id string) string {
	return k.build(DimensionID, id, VariantWithRelations)
}

// ByCustomer is a customer's order listing.
func (k KeyScheme) ByCustomer(customerID string) string {
	return k.build(DimensionCustomer, customerID)
}

// VariantsPattern matches every variant stored under an id, so variants
// added later are invalidated without touching this list.
func (k KeyScheme) VariantsPattern(id string) string {
	return k.build(DimensionID, id, infracache.Wildcard)
}

// OrderKeys lists every derived key that can hold a copy of order.
func (k KeyScheme) OrderKeys(order *entities.Order) []string {
	keys := []string{
		k.ByID(order.ID),
		k.ByIDWithRelations(order.ID),
	}
	if order.OrderNumber != "" {
		keys = append(keys, k.ByOrderNumber(order.OrderNumber))
	}
	if order.CustomerID != "" {
		keys = append(keys, k.ByCustomer(order.CustomerID))
	}
	return keys
}
