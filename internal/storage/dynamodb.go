package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// settingItem is one row of the settings table
type settingItem struct {
	Namespace string `dynamodbav:"Namespace"`
	Key       string `dynamodbav:"Key"`
	Value     string `dynamodbav:"Value"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

type settingKey struct {
	Namespace string `dynamodbav:"Namespace"`
	Key       string `dynamodbav:"Key"`
}

// DynamoDBStore implements Store using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config DynamoConfig
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// LoadDefaultConfig probes the EC2 IMDS endpoint, which hangs when
		// static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	store := &DynamoDBStore{
		client: client,
		config: cfg,
		logger: logger,
	}

	if cfg.Mode == DynamoModeLocal {
		if err := CreateTableIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Str("table", cfg.SettingsTable).
		Msg("DynamoDB settings store initialized")

	return store, nil
}

func (s *DynamoDBStore) key(namespace, key string) (map[string]dbtypes.AttributeValue, error) {
	k, err := attributevalue.MarshalMap(settingKey{Namespace: namespace, Key: key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	return k, nil
}

func (s *DynamoDBStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	k, err := s.key(namespace, key)
	if err != nil {
		return nil, false, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.SettingsTable),
		Key:            k,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	if len(result.Item) == 0 {
		return nil, false, nil
	}

	var item settingItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal setting %s: %w", key, err)
	}
	return []byte(item.Value), true, nil
}

func (s *DynamoDBStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	item, err := attributevalue.MarshalMap(settingItem{
		Namespace: namespace,
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal setting: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.SettingsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func (s *DynamoDBStore) Delete(ctx context.Context, namespace, key string) error {
	k, err := s.key(namespace, key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.SettingsTable),
		Key:       k,
	})
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

func (s *DynamoDBStore) query(ctx context.Context, namespace string) ([]settingItem, error) {
	keyCond := expression.Key(attrNamespace).Equal(expression.Value(namespace))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var items []settingItem
	var lastKey map[string]dbtypes.AttributeValue
	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.config.SettingsTable),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query settings: %w", err)
		}

		var page []settingItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
		items = append(items, page...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			return items, nil
		}
	}
}

func (s *DynamoDBStore) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	items, err := s.query(ctx, namespace)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(items))
	for _, item := range items {
		out[item.Key] = []byte(item.Value)
	}
	return out, nil
}

// Truncate deletes every setting of namespace in batches of 25
func (s *DynamoDBStore) Truncate(ctx context.Context, namespace string) error {
	items, err := s.query(ctx, namespace)
	if err != nil {
		return err
	}

	for i := 0; i < len(items); i += 25 {
		end := i + 25
		if end > len(items) {
			end = len(items)
		}

		requests := make([]dbtypes.WriteRequest, 0, end-i)
		for _, item := range items[i:end] {
			k, err := s.key(item.Namespace, item.Key)
			if err != nil {
				return err
			}
			requests = append(requests, dbtypes.WriteRequest{
				DeleteRequest: &dbtypes.DeleteRequest{Key: k},
			})
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]dbtypes.WriteRequest{
				s.config.SettingsTable: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to truncate settings: %w", err)
		}
	}

	s.logger.Info().Str("namespace", namespace).Int("items", len(items)).Msg("settings truncated")
	return nil
}

func (s *DynamoDBStore) Close() error {
	return nil
}
