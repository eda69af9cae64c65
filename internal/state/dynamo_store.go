package state

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"launchsync/internal/model"
)

// DynamoConfig selects the DynamoDB table and, for local testing, an endpoint override.
type DynamoConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// dynamoAPI is the subset of *dynamodb.Client used by DynamoStore, split for tests.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore implements Store on a DynamoDB table whose partition key is launch_id (S).
// attributevalue encodes every number as a decimal N attribute, so fractional
// payload masses are stored without float conversion on the service side.
type DynamoStore struct {
	api   dynamoAPI
	table string
}

// NewDynamoStore builds a client from the default AWS credential chain.
func NewDynamoStore(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, Error.New("load AWS config: %v", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoStoreWith(client, cfg.Table), nil
}

// NewDynamoStoreWith is used by tests to inject a fake client.
func NewDynamoStoreWith(api dynamoAPI, table string) *DynamoStore {
	return &DynamoStore{api: api, table: table}
}

// Table returns the table name.
func (d *DynamoStore) Table() string { return d.table }

func (d *DynamoStore) Get(ctx context.Context, launchID string) (model.Launch, bool, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"launch_id": &types.AttributeValueMemberS{Value: launchID},
		},
	})
	if err != nil {
		return model.Launch{}, false, Error.Wrap(err)
	}
	if out.Item == nil {
		return model.Launch{}, false, nil
	}
	var l model.Launch
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return model.Launch{}, false, Error.Wrap(err)
	}
	return l, true, nil
}

func (d *DynamoStore) Put(ctx context.Context, l model.Launch) error {
	if l.LaunchID == "" {
		return Error.New("empty launch_id")
	}
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	return Error.Wrap(err)
}

func (d *DynamoStore) Range(ctx context.Context, fn func(l model.Launch) error) error {
	p := dynamodb.NewScanPaginator(d.api, &dynamodb.ScanInput{TableName: aws.String(d.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return Error.Wrap(err)
		}
		for _, item := range page.Items {
			var l model.Launch
			if err := attributevalue.UnmarshalMap(item, &l); err != nil {
				return Error.Wrap(err)
			}
			if err := fn(l); err != nil {
				return Error.Wrap(err)
			}
		}
	}
	return nil
}
