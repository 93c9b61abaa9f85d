// Package dynamodb implements the order backing store on a single DynamoDB
// table. An order is stored as one metadata row plus one row per line item
// under the same partition key.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"filing-backend/application/ports"
	"filing-backend/domain/core/entities"
	apperrors "filing-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	entityTypeOrder = "ORDER"
	entityTypeItem  = "ORDER_ITEM"

	metadataSK = "METADATA"
	itemPrefix = "ITEM#"

	// DynamoDB limits
	maxBatchWrite   = 25
	maxTransactions = 100
)

// DBClient defines the DynamoDB operations the store needs, satisfied by
// *dynamodb.Client and by mocks in tests.
type DBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Config names the table and its secondary indexes.
type Config struct {
	TableName        string
	OrderNumberIndex string
	CustomerIndex    string
}

// OrderStore implements ports.OrderStore on DynamoDB.
type OrderStore struct {
	client DBClient
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderStore creates a store over client.
func NewOrderStore(client DBClient, config Config, logger *zap.Logger) *OrderStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderStore{
		client: client,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

type orderRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.Order
}

type itemRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.OrderItem
}

func orderPK(id string) string {
	return "ORDER#" + id
}

func metadataKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: orderPK(id)},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

// Create writes the order and its items in one transaction. The order row
// is conditional on the id being unused.
func (s *OrderStore) Create(ctx context.Context, order *entities.Order, items []*entities.OrderItem) error {
	if order == nil || order.ID == "" {
		return apperrors.NewValidationError("order id is required")
	}
	if len(items)+1 > maxTransactions {
		return apperrors.NewValidationError(fmt.Sprintf("an order may have at most %d items", maxTransactions-1))
	}

	orderItem, err := attributevalue.MarshalMap(orderRecord{
		PK:         orderPK(order.ID),
		SK:         metadataSK,
		EntityType: entityTypeOrder,
		Order:      *order,
	})
	if err != nil {
		return apperrors.NewInternalError("failed to marshal order").WithCause(err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build expression").WithCause(err)
	}

	writes := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                 aws.String(s.config.TableName),
			Item:                      orderItem,
			ConditionExpression:       cond.Condition(),
			ExpressionAttributeNames:  cond.Names(),
			ExpressionAttributeValues: cond.Values(),
		},
	}}

	for _, item := range items {
		av, err := attributevalue.MarshalMap(itemRecord{
			PK:         orderPK(order.ID),
			SK:         itemPrefix + item.ID,
			EntityType: entityTypeItem,
			OrderItem:  *item,
		})
		if err != nil {
			return apperrors.NewInternalError("failed to marshal order item").WithCause(err)
		}
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(s.config.TableName), Item: av},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && conditionFailed(canceled) {
			return apperrors.NewConflictError(fmt.Sprintf("order %s already exists", order.ID))
		}
		return classify("TransactWriteItems", err)
	}

	s.logger.Debug("Order created",
		zap.String("order_id", order.ID),
		zap.Int("items", len(items)),
	)
	return nil
}

// FindByID reads the metadata row with a strongly consistent read.
func (s *OrderStore) FindByID(ctx context.Context, id string) (*entities.Order, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.TableName),
		Key:            metadataKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("GetItem", err)
	}
	if result.Item == nil {
		return nil, apperrors.NewNotFoundError("order")
	}
	return parseOrder(result.Item)
}

// FindByOrderNumber queries the order number index.
func (s *OrderStore) FindByOrderNumber(ctx context.Context, orderNumber string) (*entities.Order, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("OrderNumber").Equal(expression.Value(orderNumber))).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build expression").WithCause(err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		IndexName:                 aws.String(s.config.OrderNumberIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, classify("Query", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError("order")
	}
	return parseOrder(result.Items[0])
}

// FindByIDWithRelations reads the whole partition: metadata plus items.
func (s *OrderStore) FindByIDWithRelations(ctx context.Context, id string) (*entities.OrderWithRelations, error) {
	rows, err := s.queryPartition(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &entities.OrderWithRelations{Items: make([]*entities.OrderItem, 0, len(rows))}
	for _, row := range rows {
		sk, _ := row["SK"].(*types.AttributeValueMemberS)
		switch {
		case sk != nil && sk.Value == metadataSK:
			order, err := parseOrder(row)
			if err != nil {
				return nil, err
			}
			out.Order = order
		case sk != nil && strings.HasPrefix(sk.Value, itemPrefix):
			var rec itemRecord
			if err := attributevalue.UnmarshalMap(row, &rec); err != nil {
				s.logger.Warn("Failed to parse order item", zap.String("order_id", id), zap.Error(err))
				continue
			}
			item := rec.OrderItem
			out.Items = append(out.Items, &item)
		}
	}

	if out.Order == nil {
		return nil, apperrors.NewNotFoundError("order")
	}
	return out, nil
}

// FindByCustomer queries the customer index, newest first.
func (s *OrderStore) FindByCustomer(ctx context.Context, customerID string) ([]*entities.Order, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("CustomerID").Equal(expression.Value(customerID))).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build expression").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		IndexName:                 aws.String(s.config.CustomerIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}

	orders := make([]*entities.Order, 0)
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, classify("Query", err)
		}
		for _, row := range result.Items {
			order, err := parseOrder(row)
			if err != nil {
				s.logger.Warn("Failed to parse order", zap.String("customer_id", customerID), zap.Error(err))
				continue
			}
			orders = append(orders, order)
		}
		if len(result.LastEvaluatedKey) == 0 {
			return orders, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// Update applies the patch atomically, bumps the version and returns the
// committed record.
func (s *OrderStore) Update(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error) {
	update := expression.
		Set(expression.Name("UpdatedAt"), expression.Value(s.now().UTC())).
		Add(expression.Name("Version"), expression.Value(1))
	if patch.Status != nil {
		update = update.Set(expression.Name("Status"), expression.Value(string(*patch.Status)))
	}
	if patch.PaymentStatus != nil {
		update = update.Set(expression.Name("PaymentStatus"), expression.Value(string(*patch.PaymentStatus)))
	}
	if patch.TotalCents != nil {
		update = update.Set(expression.Name("TotalCents"), expression.Value(*patch.TotalCents))
	}
	if patch.BusinessEntityID != nil {
		update = update.Set(expression.Name("BusinessEntityID"), expression.Value(*patch.BusinessEntityID))
	}
	if patch.Notes != nil {
		update = update.Set(expression.Name("Notes"), expression.Value(*patch.Notes))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build expression").WithCause(err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.TableName),
		Key:                       metadataKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, apperrors.NewNotFoundError("order")
		}
		return nil, classify("UpdateItem", err)
	}
	return parseOrder(result.Attributes)
}

// Delete removes the metadata row, returning it, then the item rows.
func (s *OrderStore) Delete(ctx context.Context, id string) (*entities.Order, error) {
	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build expression").WithCause(err)
	}

	result, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.config.TableName),
		Key:                       metadataKey(id),
		ConditionExpression:       cond.Condition(),
		ExpressionAttributeNames:  cond.Names(),
		ExpressionAttributeValues: cond.Values(),
		ReturnValues:              types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, apperrors.NewNotFoundError("order")
		}
		return nil, classify("DeleteItem", err)
	}

	deleted, err := parseOrder(result.Attributes)
	if err != nil {
		return nil, err
	}

	// Items without their order are unreachable; failing to remove them is
	// logged rather than reported.
	if err := s.deleteItems(ctx, id); err != nil {
		s.logger.Warn("Failed to delete order items",
			zap.String("order_id", id),
			zap.Error(err),
		)
	}
	return deleted, nil
}

func (s *OrderStore) deleteItems(ctx context.Context, id string) error {
	rows, err := s.queryPartition(ctx, id)
	if err != nil {
		return err
	}

	requests := make([]types.WriteRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{"PK": row["PK"], "SK": row["SK"]},
			},
		})
	}

	for start := 0; start < len(requests); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		pending := map[string][]types.WriteRequest{s.config.TableName: requests[start:end]}
		for attempt := 0; len(pending) > 0 && attempt < 3; attempt++ {
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return classify("BatchWriteItem", err)
			}
			pending = out.UnprocessedItems
		}
		if len(pending) > 0 {
			return apperrors.NewDatabaseError("BatchWriteItem", errors.New("unprocessed items remain after retries"))
		}
	}
	return nil
}

func (s *OrderStore) queryPartition(ctx context.Context, id string) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(orderPK(id)))).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build expression").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}

	var rows []map[string]types.AttributeValue
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, classify("Query", err)
		}
		rows = append(rows, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return rows, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func parseOrder(item map[string]types.AttributeValue) (*entities.Order, error) {
	var rec orderRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, apperrors.NewInternalError("failed to parse order").WithCause(err)
	}
	order := rec.Order
	return &order, nil
}

func conditionFailed(err *types.TransactionCanceledException) bool {
	for _, reason := range err.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// classify maps SDK errors onto the application error taxonomy.
func classify(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(operation).WithCause(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return apperrors.NewUnavailableError("dynamodb").WithCause(err).WithCode(apiErr.ErrorCode())
		case "ResourceNotFoundException":
			return apperrors.NewDatabaseError(operation, err).WithCode(apiErr.ErrorCode())
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return apperrors.NewUnavailableError("dynamodb").WithCause(err).WithCode(apiErr.ErrorCode())
		}
	}
	return apperrors.NewDatabaseError(operation, err)
}

var _ ports.OrderStore = (*OrderStore)(nil)
