package debtmock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/debttable/debttable"
)

type dynamoDBCall[T, U any] func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// MockClient is a simple expectation-based mock for DynamoDB operations.
// Tests set the functions for the calls they expect; any other call fails
// the test.
type MockClient struct {
	PutFunc    dynamoDBCall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	GetFunc    dynamoDBCall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	DeleteFunc dynamoDBCall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	QueryFunc  dynamoDBCall[dynamodb.QueryInput, dynamodb.QueryOutput]
}

// Ensure MockClient implements the store's client interface
var _ debttable.DynamoDBClient = (*MockClient)(nil)

// NewMockClient creates a mock whose operations fail the test until
// expectations are set.
func NewMockClient(t *testing.T) *MockClient {
	return &MockClient{
		PutFunc:    defaultFunc[dynamodb.PutItemInput, dynamodb.PutItemOutput](t),
		GetFunc:    defaultFunc[dynamodb.GetItemInput, dynamodb.GetItemOutput](t),
		DeleteFunc: defaultFunc[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t),
		QueryFunc:  defaultFunc[dynamodb.QueryInput, dynamodb.QueryOutput](t),
	}
}

func defaultFunc[T, U any](t *testing.T) dynamoDBCall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Fatal("unexpected call")
		return nil, nil
	}
}

// PutItem invokes the configured PutFunc.
func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

// GetItem invokes the configured GetFunc.
func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetFunc(ctx, params, optFns...)
}

// DeleteItem invokes the configured DeleteFunc.
func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteFunc(ctx, params, optFns...)
}

// Query invokes the configured QueryFunc.
func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}
