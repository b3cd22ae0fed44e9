// AWS provider for the table scaler.
// DynamoDB supplies the table description and applies capacity changes,
// CloudWatch supplies the consumed-capacity and throttling time series.
package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"

	"github.com/ochestra-tech/tablescaler/internal/config"
	"github.com/ochestra-tech/tablescaler/internal/scaling"
)

const dynamoDBNamespace = "AWS/DynamoDB"

// AWSProvider implements TableProvider and MetricsProvider against AWS
type AWSProvider struct {
	session          *session.Session
	dynamoClient     dynamodbiface.DynamoDBAPI
	cloudwatchClient cloudwatchiface.CloudWatchAPI
	stsClient        stsiface.STSAPI
	region           string
}

// NewSession creates an AWS session for the configured region and endpoint
func NewSession(cfg config.AWSConfig) (*session.Session, error) {
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

// NewAWSProvider creates a provider with clients built from sess
func NewAWSProvider(sess *session.Session) *AWSProvider {
	region := "us-east-1"
	if sess.Config.Region != nil && *sess.Config.Region != "" {
		region = *sess.Config.Region
	}

	return &AWSProvider{
		session:          sess,
		dynamoClient:     dynamodb.New(sess),
		cloudwatchClient: cloudwatch.New(sess),
		stsClient:        sts.New(sess),
		region:           region,
	}
}

// NewAWSProviderWithClients creates a provider around existing clients
func NewAWSProviderWithClients(ddb dynamodbiface.DynamoDBAPI, cw cloudwatchiface.CloudWatchAPI, st stsiface.STSAPI, region string) *AWSProvider {
	return &AWSProvider{
		dynamoClient:     ddb,
		cloudwatchClient: cw,
		stsClient:        st,
		region:           region,
	}
}

// DynamoDB returns the underlying DynamoDB client
func (p *AWSProvider) DynamoDB() dynamodbiface.DynamoDBAPI {
	return p.dynamoClient
}

// Region returns the region the provider talks to
func (p *AWSProvider) Region() string {
	return p.region
}

// DescribeTable retrieves the table status and provisioned throughput
func (p *AWSProvider) DescribeTable(ctx context.Context, tableName string) (*TableDescription, error) {
	out, err := p.dynamoClient.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", tableName, err)
	}
	if out.Table == nil {
		return nil, fmt.Errorf("table %s: empty description", tableName)
	}

	table := out.Table
	desc := &TableDescription{
		TableName: aws.StringValue(table.TableName),
		Status:    aws.StringValue(table.TableStatus),
		ItemCount: aws.Int64Value(table.ItemCount),
		SizeBytes: aws.Int64Value(table.TableSizeBytes),
		Raw:       table,
	}

	if pt := table.ProvisionedThroughput; pt != nil {
		desc.Provisioned = scaling.ProvisionedState{
			ReadCapacityUnits:      aws.Int64Value(pt.ReadCapacityUnits),
			WriteCapacityUnits:     aws.Int64Value(pt.WriteCapacityUnits),
			NumberOfDecreasesToday: aws.Int64Value(pt.NumberOfDecreasesToday),
			LastDecreaseDateTime:   aws.TimeValue(pt.LastDecreaseDateTime),
		}
	}

	return desc, nil
}

// GetMetricStatistics retrieves the summed datapoints of a table metric,
// ordered oldest to newest
func (p *AWSProvider) GetMetricStatistics(ctx context.Context, query MetricQuery) ([]scaling.MetricSample, error) {
	input := &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(dynamoDBNamespace),
		MetricName: aws.String(query.MetricName),
		Dimensions: []*cloudwatch.Dimension{
			{
				Name:  aws.String("TableName"),
				Value: aws.String(query.TableName),
			},
		},
		Period:     aws.Int64(int64(query.Period.Seconds())),
		StartTime:  aws.Time(query.StartTime),
		EndTime:    aws.Time(query.EndTime),
		Statistics: []*string{aws.String(cloudwatch.StatisticSum)},
		Unit:       aws.String(cloudwatch.StandardUnitCount),
	}

	out, err := p.cloudwatchClient.GetMetricStatisticsWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s statistics: %w", query.MetricName, err)
	}

	samples := make([]scaling.MetricSample, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		if dp == nil {
			continue
		}
		samples = append(samples, scaling.MetricSample{
			Sum:       aws.Float64Value(dp.Sum),
			Timestamp: aws.TimeValue(dp.Timestamp),
		})
	}

	// CloudWatch does not guarantee datapoint order
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	return samples, nil
}

// UpdateCapacity sets the table's provisioned read and write capacity
func (p *AWSProvider) UpdateCapacity(ctx context.Context, tableName string, reads, writes int64) (*UpdateResult, error) {
	out, err := p.dynamoClient.UpdateTableWithContext(ctx, &dynamodb.UpdateTableInput{
		TableName: aws.String(tableName),
		ProvisionedThroughput: &dynamodb.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(reads),
			WriteCapacityUnits: aws.Int64(writes),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update table %s: %w", tableName, err)
	}

	result := &UpdateResult{
		TableName: tableName,
		Reads:     reads,
		Writes:    writes,
		Raw:       out,
	}
	if out.TableDescription != nil {
		result.Status = aws.StringValue(out.TableDescription.TableStatus)
	}

	return result, nil
}

// ValidateCredentials validates AWS credentials
func (p *AWSProvider) ValidateCredentials(ctx context.Context) error {
	_, err := p.stsClient.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("failed to validate AWS credentials: %w", err)
	}
	return nil
}
