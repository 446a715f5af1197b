package debtmock

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/debttable/debttable"
)

// MemoryClient is an in-memory DynamoDB fake honoring the debt ledger
// schema: partition key equality queries, sort key prefix conditions, the
// reverse index, conditional puts, limits, and pagination keys. It is safe
// for concurrent use.
type MemoryClient struct {
	mu    sync.Mutex
	items map[string]debttable.Item
}

// Ensure MemoryClient implements the store's client interface
var _ debttable.DynamoDBClient = (*MemoryClient)(nil)

// NewMemoryClient creates an empty in-memory table.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{items: make(map[string]debttable.Item)}
}

// Len returns the number of stored items.
func (m *MemoryClient) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// PutItem stores an item, honoring attribute_not_exists condition
// expressions the way the real service does.
func (m *MemoryClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk, sk, err := itemKey(params.Item)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	storageKey := pk + "\x00" + sk
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, "attribute_not_exists") {
		if _, exists := m.items[storageKey]; exists {
			return nil, &types.ConditionalCheckFailedException{
				Message: aws.String("The conditional request failed"),
			}
		}
	}

	m.items[storageKey] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem retrieves an item by exact key.
func (m *MemoryClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	pk, sk, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if item, exists := m.items[pk+"\x00"+sk]; exists {
		return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

// DeleteItem removes an item by exact key.
func (m *MemoryClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	pk, sk, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, pk+"\x00"+sk)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query evaluates a key condition expression against the stored items.
// Main table queries match partition key equality plus an optional sort key
// equality or prefix condition; queries naming an index are evaluated as
// reverse index lookups on sort key equality.
func (m *MemoryClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	conds, err := parseKeyCondition(params)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []debttable.Item
	for _, item := range m.items {
		if matchItem(item, conds, params.IndexName != nil) {
			matched = append(matched, copyItem(item))
		}
	}

	// Sort by the effective range key: SK on the main table, PK on the
	// reverse index.
	rangeAttr := "SK"
	if params.IndexName != nil {
		rangeAttr = "PK"
	}
	sort.Slice(matched, func(i, j int) bool {
		return stringAttr(matched[i], rangeAttr) < stringAttr(matched[j], rangeAttr)
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	if params.ExclusiveStartKey != nil {
		start := stringAttr(params.ExclusiveStartKey, rangeAttr)
		for i, item := range matched {
			if stringAttr(item, rangeAttr) == start {
				matched = matched[i+1:]
				break
			}
		}
	}

	out := &dynamodb.QueryOutput{}
	if params.Limit != nil && int(*params.Limit) < len(matched) {
		limit := int(*params.Limit)
		out.Items = matched[:limit]
		last := matched[limit-1]
		out.LastEvaluatedKey = debttable.Item{
			"PK": &types.AttributeValueMemberS{Value: stringAttr(last, "PK")},
			"SK": &types.AttributeValueMemberS{Value: stringAttr(last, "SK")},
		}
	} else {
		out.Items = matched
	}
	out.Count = int32(len(out.Items))

	return out, nil
}

type keyCondition struct {
	attr  string
	op    string // "eq" or "begins_with"
	value string
}

var (
	eqPattern     = regexp.MustCompile(`(#\w+)\s*=\s*(:\w+)`)
	prefixPattern = regexp.MustCompile(`begins_with\s*\((#\w+),\s*(:\w+)\)`)
)

// parseKeyCondition resolves the placeholder-based key condition expression
// into concrete attribute conditions. Only the shapes the access planner
// produces are supported.
func parseKeyCondition(params *dynamodb.QueryInput) ([]keyCondition, error) {
	if params.KeyConditionExpression == nil {
		return nil, fmt.Errorf("query missing key condition expression")
	}
	expr := *params.KeyConditionExpression

	resolve := func(nameRef, valueRef string) (keyCondition, error) {
		name, ok := params.ExpressionAttributeNames[nameRef]
		if !ok {
			return keyCondition{}, fmt.Errorf("unresolved attribute name %s", nameRef)
		}
		value, ok := params.ExpressionAttributeValues[valueRef]
		if !ok {
			return keyCondition{}, fmt.Errorf("unresolved attribute value %s", valueRef)
		}
		s, ok := value.(*types.AttributeValueMemberS)
		if !ok {
			return keyCondition{}, fmt.Errorf("attribute value %s is not a string", valueRef)
		}
		return keyCondition{attr: name, value: s.Value}, nil
	}

	var conds []keyCondition
	for _, match := range prefixPattern.FindAllStringSubmatch(expr, -1) {
		cond, err := resolve(match[1], match[2])
		if err != nil {
			return nil, err
		}
		cond.op = "begins_with"
		conds = append(conds, cond)
	}

	// Strip prefix conditions before scanning for equalities so their
	// arguments are not matched twice.
	remainder := prefixPattern.ReplaceAllString(expr, "")
	for _, match := range eqPattern.FindAllStringSubmatch(remainder, -1) {
		cond, err := resolve(match[1], match[2])
		if err != nil {
			return nil, err
		}
		cond.op = "eq"
		conds = append(conds, cond)
	}

	if len(conds) == 0 {
		return nil, fmt.Errorf("unsupported key condition expression: %s", expr)
	}
	return conds, nil
}

func matchItem(item debttable.Item, conds []keyCondition, indexQuery bool) bool {
	for _, cond := range conds {
		actual := stringAttr(item, cond.attr)
		switch cond.op {
		case "eq":
			if actual != cond.value {
				return false
			}
		case "begins_with":
			if !strings.HasPrefix(actual, cond.value) {
				return false
			}
		default:
			return false
		}
	}
	// Items without both keys never appear on the reverse index.
	if indexQuery && (stringAttr(item, "PK") == "" || stringAttr(item, "SK") == "") {
		return false
	}
	return true
}

func itemKey(item debttable.Item) (pk, sk string, err error) {
	pk = stringAttr(item, "PK")
	sk = stringAttr(item, "SK")
	if pk == "" || sk == "" {
		return "", "", fmt.Errorf("item missing PK or SK attribute")
	}
	return pk, sk, nil
}

func stringAttr(item debttable.Item, name string) string {
	if attr, ok := item[name].(*types.AttributeValueMemberS); ok {
		return attr.Value
	}
	return ""
}

func copyItem(item debttable.Item) debttable.Item {
	dup := make(debttable.Item, len(item))
	for k, v := range item {
		dup[k] = v
	}
	return dup
}
