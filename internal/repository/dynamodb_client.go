package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"chat-relay/internal/domain"
)

const (
	skConversation = "CONV#"
	skProfile      = "PROFILE#"
	prefAttrPrefix = "p:"
	defaultTTL     = 30 * 24 * time.Hour
)

// DynamoDBAPI is the minimal DynamoDB interface required by Client.
// *dynamodb.Client satisfies it.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Client stores per-user relay state in a single DynamoDB table keyed by
// PK=USER#<id>. The conversation id lives under SK=CONV# and the profile
// under SK=PROFILE#, one attribute per preference.
type Client struct {
	api       DynamoDBAPI
	tableName string
	ttl       time.Duration
}

// New creates a new repository Client. A non-positive ttl means 30 days.
func New(api DynamoDBAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Client{api: api, tableName: tableName, ttl: ttl}, nil
}

// userPK returns the partition key for a user.
func userPK(userID string) string {
	return "USER#" + userID
}

func (c *Client) ttlValue() int64 {
	return time.Now().Add(c.ttl).Unix()
}

func (c *Client) key(userID, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// GetConversationID returns the stored upstream conversation id for a user.
func (c *Client) GetConversationID(ctx context.Context, userID string) (string, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.key(userID, skConversation),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("repository: GetConversationID get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}
	id, err := strAttr(out.Item, "conversationId")
	if err != nil {
		return "", false, fmt.Errorf("repository: GetConversationID decode: %w", err)
	}
	return id, id != "", nil
}

// SetConversationID writes or replaces the conversation record.
func (c *Client) SetConversationID(ctx context.Context, userID, conversationID string) error {
	item := c.key(userID, skConversation)
	item["conversationId"] = &types.AttributeValueMemberS{Value: conversationID}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(c.ttlValue(), 10)}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: SetConversationID: %w", err)
	}
	return nil
}

// GetProfile returns the stored preferences, or an empty profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.key(userID, skProfile),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetProfile get item: %w", err)
	}
	if out == nil {
		return domain.Profile{}, nil
	}
	return itemToProfile(out.Item)
}

// MergeProfile sets one attribute per preference in a single UpdateItem,
// which leaves attributes not named in partial untouched.
func (c *Client) MergeProfile(ctx context.Context, userID string, partial domain.Profile) (domain.Profile, error) {
	names := map[string]string{"#ttl": "ttl"}
	values := map[string]types.AttributeValue{
		":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(c.ttlValue(), 10)},
	}
	clauses := []string{"#ttl = :ttl"}

	// Sorted for a deterministic expression.
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		b, err := json.Marshal(partial[k])
		if err != nil {
			return nil, fmt.Errorf("repository: MergeProfile encode %q: %w", k, err)
		}
		name, value := fmt.Sprintf("#p%d", i), fmt.Sprintf(":p%d", i)
		names[name] = prefAttrPrefix + k
		values[value] = &types.AttributeValueMemberS{Value: string(b)}
		clauses = append(clauses, name+" = "+value)
	}

	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       c.key(userID, skProfile),
		UpdateExpression:          aws.String("SET " + strings.Join(clauses, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("repository: MergeProfile: %w", err)
	}
	if out == nil {
		return domain.Profile{}, nil
	}
	return itemToProfile(out.Attributes)
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}

// itemToProfile decodes every p:-prefixed attribute of a profile item.
func itemToProfile(item map[string]types.AttributeValue) (domain.Profile, error) {
	profile := domain.Profile{}
	for name, av := range item {
		key, ok := strings.CutPrefix(name, prefAttrPrefix)
		if !ok {
			continue
		}
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("repository: attribute %q is not a string", name)
		}
		var v any
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil, fmt.Errorf("repository: decode attribute %q: %w", name, err)
		}
		profile[key] = v
	}
	return profile, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
