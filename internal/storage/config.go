package storage

import "os"

// StoreMode selects the backing store for the local settings tier
type StoreMode string

const (
	StoreModeMemory StoreMode = "memory"
	StoreModeSQLite StoreMode = "sqlite"
	StoreModeDynamo StoreMode = "dynamo"
)

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal DynamoMode = "local"
	DynamoModeAWS   DynamoMode = "aws"
)

// StoreConfig holds the local tier configuration
type StoreConfig struct {
	Mode       StoreMode
	SQLitePath string
	Dynamo     DynamoConfig
}

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Mode          DynamoMode
	Endpoint      string // for local mode
	Region        string
	SettingsTable string
}

// LoadStoreConfig loads the store config from environment
func LoadStoreConfig() StoreConfig {
	mode := StoreMode(getEnv("STORE_MODE", string(StoreModeMemory)))
	if mode != StoreModeSQLite && mode != StoreModeDynamo {
		mode = StoreModeMemory
	}

	dynamoMode := DynamoMode(getEnv("DYNAMO_MODE", string(DynamoModeLocal)))
	if dynamoMode != DynamoModeAWS {
		dynamoMode = DynamoModeLocal
	}

	return StoreConfig{
		Mode:       mode,
		SQLitePath: getEnv("SQLITE_PATH", "calltrack-settings.db"),
		Dynamo: DynamoConfig{
			Mode:          dynamoMode,
			Endpoint:      getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
			Region:        getEnv("DYNAMO_REGION", "ap-south-1"),
			SettingsTable: getEnv("DYNAMO_SETTINGS_TABLE", "calltrack-view-settings"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
