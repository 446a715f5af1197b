package debttable

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ListDebtsQuery carries optional parameters for a debt list query.
type ListDebtsQuery struct {
	Limit          int  // Maximum number of items to return
	StartKey       Item // Exclusive start key for pagination
	SortDescending bool // Scan direction (default: false)
}

// MarshalPutUser marshals a user record into a put item request. When
// ifNotExists is true the put is conditional on the profile key being
// absent, so signup cannot silently overwrite an existing user.
func (t *Table) MarshalPutUser(u User, ifNotExists bool) (*dynamodb.PutItemInput, error) {
	item, err := t.EncodeUser(u)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.TableName),
		Item:      item,
	}

	if ifNotExists {
		cond := expression.AttributeNotExists(expression.Name(AttributeNamePartition))
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build expression: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}

	return input, nil
}

// MarshalGetUser marshals a username into a point get on the user's
// profile key.
func (t *Table) MarshalGetUser(username string) (*dynamodb.GetItemInput, error) {
	key, err := t.UserKey(username)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(t.TableName),
		Key:       marshalKey(key),
	}, nil
}

// MarshalPutDebt marshals a debt record into a put item request. Writes
// overwrite any existing item at the same key, per the storage engine's
// native semantics.
func (t *Table) MarshalPutDebt(d Debt) (*dynamodb.PutItemInput, error) {
	item, err := t.EncodeDebt(d)
	if err != nil {
		return nil, err
	}
	return &dynamodb.PutItemInput{
		TableName: aws.String(t.TableName),
		Item:      item,
	}, nil
}

// MarshalGetDebt marshals an owner and debt id into a point get on the
// debt's key.
func (t *Table) MarshalGetDebt(owner, debtID string) (*dynamodb.GetItemInput, error) {
	key, err := t.DebtKey(owner, debtID)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(t.TableName),
		Key:       marshalKey(key),
	}, nil
}

// MarshalDeleteDebt marshals an owner and debt id into a delete item request.
func (t *Table) MarshalDeleteDebt(owner, debtID string) (*dynamodb.DeleteItemInput, error) {
	key, err := t.DebtKey(owner, debtID)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(t.TableName),
		Key:       marshalKey(key),
	}, nil
}

// MarshalListDebts marshals a query for all debts in the owner's partition:
// partition key equality plus a sort key prefix condition on "DEBT#".
func (t *Table) MarshalListDebts(owner string, q ListDebtsQuery) (*dynamodb.QueryInput, error) {
	if err := t.validateIdentifier(owner); err != nil {
		return nil, fmt.Errorf("username: %w", err)
	}

	keyCondition := expression.
		Key(AttributeNamePartition).Equal(expression.Value(t.join(userPrefix, owner))).
		And(expression.Key(AttributeNameSort).BeginsWith(t.DebtSortPrefix()))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!q.SortDescending),
	}

	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}
	if q.StartKey != nil {
		input.ExclusiveStartKey = q.StartKey
	}

	return input, nil
}

// MarshalDebtLookup marshals a reverse lookup for the owner of a debt: a
// sort key equality query on the reverse index. This is how the store
// resolves ownership from the debt id alone, without trusting
// client-supplied data.
func (t *Table) MarshalDebtLookup(debtID string) (*dynamodb.QueryInput, error) {
	if err := t.validateIdentifier(debtID); err != nil {
		return nil, fmt.Errorf("debt id: %w", err)
	}

	keyCondition := expression.
		Key(AttributeNameSort).Equal(expression.Value(t.join(debtPrefix, debtID)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(t.TableName),
		IndexName:                 aws.String(t.ReverseIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

func marshalKey(key Key) Item {
	return Item{
		AttributeNamePartition: &types.AttributeValueMemberS{Value: key.Partition},
		AttributeNameSort:      &types.AttributeValueMemberS{Value: key.Sort},
	}
}
