package replay

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/metrics"
	"github.com/ambientlabs/permitory/pkg/permit"
)

const (
	readCapacityUnits  = 5
	writeCapacityUnits = 5
	defaultTable       = "permit_replay"
)

type AWSConfig struct {
	AccessKeyID string `yaml:"access_key_id"`
	AccessKey   string `yaml:"secret_access_key"`
	Region      string `yaml:"region"`
	Table       string `yaml:"table"`
}

func (c *AWSConfig) table() string {
	if c.Table != "" {
		return c.Table
	}
	return defaultTable
}

// AWS stores consumed-permit markers in DynamoDB. The conditional
// PutItem is the atomic check-and-commit: a condition failure means the
// permit was already consumed and writes nothing.
type AWS struct {
	cfg    AWSConfig
	client *dynamodb.Client
}

func NewAWSStore(ctx context.Context, conf *AWSConfig) (*AWS, error) {
	if conf.AccessKeyID != "" {
		os.Setenv("AWS_ACCESS_KEY_ID", conf.AccessKeyID)
		os.Setenv("AWS_SECRET_ACCESS_KEY", conf.AccessKey)
	}
	if conf.Region != "" {
		os.Setenv("AWS_REGION", conf.Region)
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	a := AWS{
		client: dynamodb.NewFromConfig(cfg),
		cfg:    *conf,
	}
	if err := a.maybeCreateTable(ctx); err != nil {
		return nil, fmt.Errorf("(AWSReplay) NewAWSStore: %w", err)
	}
	return &a, nil
}

func (a *AWS) createTable(ctx context.Context) (bool, error) {
	tableName := a.cfg.table()
	_, err := a.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("idx"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("slot"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("idx"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("slot"),
				KeyType:       types.KeyTypeRange,
			},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(readCapacityUnits),
			WriteCapacityUnits: aws.Int64(writeCapacityUnits),
		},
		TableName: aws.String(tableName),
	})
	if err != nil {
		var serr smithy.APIError
		if errors.As(err, &serr) && serr.ErrorCode() == "ResourceInUseException" {
			log.Infof("DynamoDB replay backend using existing table '%s'", tableName)
			return true, nil
		}
		if errors.As(err, &serr) {
			metrics.RecordDynamoDBError(serr.ErrorCode(), tableName, "create_table")
		}
		return false, err
	}
	log.Infof("DynamoDB replay backend created table '%s'", tableName)

	waiter := dynamodb.NewTableExistsWaiter(a.client)
	if waitErr := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, time.Minute*5); waitErr != nil {
		return false, waitErr
	}
	return true, nil
}

func (a *AWS) maybeCreateTable(ctx context.Context) error {
	tableName := a.cfg.table()
	opts := metrics.DynamoDBInterceptorOptions{
		Operation:  "create_table",
		TableName:  tableName,
		TargetFunc: func() (bool, error) { return a.createTable(ctx) },
	}
	_, err := metrics.DynamoDBInterceptor(&opts)
	return err
}

// replayItem marks one consumed slot for an authorizer. Sequence mode
// reuses a single slot whose Seq attribute only moves forward; the
// other modes write one-shot slots guarded by attribute_not_exists.
type replayItem struct {
	Idx  string `dynamodbav:"idx"`
	Slot string `dynamodbav:"slot"`
	Seq  uint64 `dynamodbav:"seq"`
}

func itemFor(env *permit.Envelope) (item replayItem, oneShot bool, err error) {
	item.Idx = strings.Join([]string{env.Domain.Cluster.String(), env.Authorizer.String()}, "/")
	switch m := env.Mode.(type) {
	case permit.Sequence:
		item.Slot = "sequence"
		item.Seq = uint64(m)
		return item, false, nil
	case permit.Nonce:
		item.Slot = fmt.Sprintf("nonce/%d", uint64(m))
		return item, true, nil
	case permit.Allowance:
		item.Slot = "allowance/" + hex.EncodeToString(m[:])
		return item, true, nil
	case permit.Window:
		if m.K == 0 || m.K > MaxWindowK {
			return item, false, rejected("window size %d out of range", m.K)
		}
		// uniqueness only: the window floor lives in the on-chain
		// account, the freshness bound is enforced by the verifier
		item.Slot = fmt.Sprintf("window/%d", env.Nonce)
		return item, true, nil
	default:
		return item, false, rejected("unsupported replay mode %s", env.Mode.Mode())
	}
}

func (a *AWS) putItem(ctx context.Context, input *dynamodb.PutItemInput) (bool, error) {
	tableName := a.cfg.table()
	_, err := a.client.PutItem(ctx, input)
	if err != nil {
		var serr smithy.APIError
		if errors.As(err, &serr) {
			if serr.ErrorCode() == "ConditionalCheckFailedException" {
				return false, rejected("permit already consumed")
			}
			metrics.RecordDynamoDBError(serr.ErrorCode(), tableName, "put")
		} else {
			metrics.RecordDynamoDBError("unknown", tableName, "put")
		}
		log.Error(err)
		return false, err
	}
	return true, nil
}

func (a *AWS) CheckCommit(ctx context.Context, env *permit.Envelope) error {
	data, oneShot, err := itemFor(env)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(&data)
	if err != nil {
		return fmt.Errorf("(AWSReplay) CheckCommit: %w", err)
	}

	tableName := a.cfg.table()
	putItemInput := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	}
	if oneShot {
		putItemInput.ConditionExpression = aws.String("attribute_not_exists(idx)")
	} else {
		putItemInput.ConditionExpression = aws.String("attribute_not_exists(idx) or seq < :new_seq")
		putItemInput.ExpressionAttributeValues = map[string]types.AttributeValue{
			":new_seq": item["seq"],
		}
	}

	opts := metrics.DynamoDBInterceptorOptions{
		Operation:  "put",
		TableName:  tableName,
		TargetFunc: func() (bool, error) { return a.putItem(ctx, putItemInput) },
	}
	_, err = metrics.DynamoDBInterceptor(&opts)
	return err
}

func init() {
	RegisterStore("aws", func(ctx context.Context, node *yaml.Node, global config.GlobalContext) (storeImpl, error) {
		var conf AWSConfig
		if node != nil && node.Kind != 0 {
			if err := node.Decode(&conf); err != nil {
				return nil, err
			}
		}
		return NewAWSStore(ctx, &conf)
	})
}
