package dyndb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient interface para abstrair o cliente DynamoDB
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ DynamoDBClient = (*dynamodb.Client)(nil)

// TableConfig descreve a tabela e suas chaves.
type TableConfig struct {
	TableName string `env:"DYNAMODB_TABLE_NAME"`
	HashKey   string `env:"DYNAMODB_HASH_KEY" envDefault:"batch_id"`
	SortKey   string `env:"DYNAMODB_SORT_KEY" envDefault:"img_fprint"`
}

// Table executa operações de item sobre uma tabela, codificando todos os
// valores através do Encoder.
type Table struct {
	client DynamoDBClient
	enc    *Encoder
	cfg    TableConfig
}

// NewTable cria a tabela. As chaves precisam existir no schema do encoder.
func NewTable(client DynamoDBClient, enc *Encoder, cfg TableConfig) (*Table, error) {
	if cfg.TableName == "" {
		return nil, &ConfigurationError{Reason: "table name is required"}
	}
	if cfg.HashKey == "" {
		return nil, &ConfigurationError{Reason: "hash key is required"}
	}
	for _, k := range []string{cfg.HashKey, cfg.SortKey} {
		if k == "" {
			continue
		}
		if _, ok := enc.Schema().Kind(k); !ok {
			return nil, &ConfigurationError{Field: k, Reason: "key attribute is not part of the schema"}
		}
	}
	return &Table{client: client, enc: enc, cfg: cfg}, nil
}

// Name retorna o nome da tabela.
func (t *Table) Name() string {
	return t.cfg.TableName
}

// encoded entrega ao expression builder um atributo que já passou pelo schema.
type encoded struct {
	av types.AttributeValue
}

func (e encoded) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return e.av, nil
}

// Put grava um novo item. Falha com ErrAlreadyExists se a chave já existir.
func (t *Table) Put(ctx context.Context, fields Fields) error {
	item, err := t.enc.EncodeItem(fields)
	if err != nil {
		return err
	}

	cond := expression.AttributeNotExists(expression.Name(t.cfg.HashKey))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dyndb: build put expression: %w", err)
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(t.cfg.TableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("dyndb: put failed: %w", err)
	}
	return nil
}

// UpdateOption altera o comportamento de Update.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	conditions []condition
}

type condition struct {
	field string
	value any
}

// WhenEquals só aplica o update se o campo armazenado for igual ao valor.
func WhenEquals(field string, value any) UpdateOption {
	return func(o *updateOptions) {
		o.conditions = append(o.conditions, condition{field: field, value: value})
	}
}

// Update aplica SET em todos os campos que não são chave e retorna o item
// completo após a alteração.
func (t *Table) Update(ctx context.Context, fields Fields, opts ...UpdateOption) (map[string]types.AttributeValue, error) {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}

	attrs := make(Fields, len(fields))
	for k, v := range fields {
		attrs[k] = v
	}

	key, err := t.popKey(attrs)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return nil, &ValidationError{Field: t.cfg.HashKey, Reason: "no attributes to update"}
	}

	var update expression.UpdateBuilder
	for i, name := range sortedNames(attrs) {
		av, err := t.enc.EncodeValue(name, attrs[name])
		if err != nil {
			return nil, err
		}
		if i == 0 {
			update = expression.Set(expression.Name(name), expression.Value(encoded{av}))
		} else {
			update = update.Set(expression.Name(name), expression.Value(encoded{av}))
		}
	}

	builder := expression.NewBuilder().WithUpdate(update)
	if len(o.conditions) > 0 {
		var cond expression.ConditionBuilder
		for i, c := range o.conditions {
			av, err := t.enc.EncodeValue(c.field, c.value)
			if err != nil {
				return nil, err
			}
			eq := expression.Name(c.field).Equal(expression.Value(encoded{av}))
			if i == 0 {
				cond = eq
			} else {
				cond = cond.And(eq)
			}
		}
		builder = builder.WithCondition(cond)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("dyndb: build update expression: %w", err)
	}

	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.cfg.TableName),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("dyndb: update failed: %w", err)
	}
	return out.Attributes, nil
}

// Get lê um item pela chave primária.
func (t *Table) Get(ctx context.Context, hashValue, sortValue any) (map[string]types.AttributeValue, error) {
	key, err := t.popKey(Fields{t.cfg.HashKey: hashValue, t.cfg.SortKey: sortValue})
	if err != nil {
		return nil, err
	}

	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.cfg.TableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dyndb: get failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return out.Item, nil
}

// QueryPartition lê todos os itens de uma partição, seguindo a paginação.
func (t *Table) QueryPartition(ctx context.Context, hashValue any) ([]map[string]types.AttributeValue, error) {
	av, err := t.enc.EncodeValue(t.cfg.HashKey, hashValue)
	if err != nil {
		return nil, err
	}

	keyCond := expression.Key(t.cfg.HashKey).Equal(expression.Value(encoded{av}))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("dyndb: build query expression: %w", err)
	}

	var (
		items   []map[string]types.AttributeValue
		lastKey map[string]types.AttributeValue
	)
	for {
		out, err := t.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(t.cfg.TableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dyndb: query failed: %w", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

// popKey remove as chaves do conjunto de campos e as codifica.
func (t *Table) popKey(fields Fields) (map[string]types.AttributeValue, error) {
	key := make(map[string]types.AttributeValue, 2)
	for _, name := range []string{t.cfg.HashKey, t.cfg.SortKey} {
		if name == "" {
			continue
		}
		v, ok := fields[name]
		if !ok || v == nil {
			return nil, &ValidationError{Field: name, Reason: "key attribute is missing"}
		}
		av, err := t.enc.EncodeValue(name, v)
		if err != nil {
			return nil, err
		}
		key[name] = av
		delete(fields, name)
	}
	return key, nil
}
