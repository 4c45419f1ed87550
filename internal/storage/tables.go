package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

const (
	attrNamespace = "Namespace"
	attrKey       = "Key"
)

// CreateTableIfNotExist creates the settings table for local development
func CreateTableIfNotExist(ctx context.Context, client *dynamodb.Client, cfg DynamoConfig, logger zerolog.Logger) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(cfg.SettingsTable),
	})
	if err == nil {
		logger.Info().Str("table", cfg.SettingsTable).Msg("table already exists")
		return nil
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(cfg.SettingsTable),
		KeySchema: []dbtypes.KeySchemaElement{
			{AttributeName: aws.String(attrNamespace), KeyType: dbtypes.KeyTypeHash},
			{AttributeName: aws.String(attrKey), KeyType: dbtypes.KeyTypeRange},
		},
		AttributeDefinitions: []dbtypes.AttributeDefinition{
			{AttributeName: aws.String(attrNamespace), AttributeType: dbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrKey), AttributeType: dbtypes.ScalarAttributeTypeS},
		},
		BillingMode: dbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", cfg.SettingsTable, err)
	}
	logger.Info().Str("table", cfg.SettingsTable).Msg("table created")
	return nil
}
