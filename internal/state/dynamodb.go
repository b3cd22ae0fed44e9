package state

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// DynamoDBStore keeps one item per scaled table in a DynamoDB table whose
// hash key is the string attribute "id".
type DynamoDBStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBStore creates a store backed by tableName
func NewDynamoDBStore(client dynamodbiface.DynamoDBAPI, tableName string) *DynamoDBStore {
	return &DynamoDBStore{client: client, tableName: tableName}
}

func (d *DynamoDBStore) Load(ctx context.Context, tableName string) (RunStats, error) {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {S: aws.String(tableName)},
		},
	})
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to load run stats for %s: %w", tableName, err)
	}

	stats := RunStats{TableName: tableName}
	if len(out.Item) == 0 {
		return stats, nil
	}
	if err := dynamodbattribute.UnmarshalMap(out.Item, &stats); err != nil {
		return RunStats{}, fmt.Errorf("failed to decode run stats for %s: %w", tableName, err)
	}
	return stats, nil
}

func (d *DynamoDBStore) Save(ctx context.Context, stats RunStats) error {
	item, err := dynamodbattribute.MarshalMap(stats)
	if err != nil {
		return fmt.Errorf("failed to encode run stats for %s: %w", stats.TableName, err)
	}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save run stats for %s: %w", stats.TableName, err)
	}
	return nil
}
