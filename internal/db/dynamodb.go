package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spacesedan/photobot/internal/models"
)

const DEFAULT_PERSONA_TABLE_NAME = "BotPersonas"

// DynamoAPI is the subset of the DynamoDB client the persona table needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	dynamodb.ScanAPIClient
}

// PersonaTable persists bot personas. It is the source of truth the persona
// pool reconciles from at startup.
type PersonaTable struct {
	client    DynamoAPI
	tableName string
}

func NewPersonaTable(client DynamoAPI, tableName string) *PersonaTable {
	if tableName == "" {
		tableName = DEFAULT_PERSONA_TABLE_NAME
	}
	return &PersonaTable{client: client, tableName: tableName}
}

func (t *PersonaTable) Save(ctx context.Context, persona models.BotPersona) error {
	item, err := attributevalue.MarshalMap(persona)
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal persona: %w", err)
	}

	backoff := 200 * time.Millisecond
	for attempt := 1; ; attempt++ {
		_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(t.tableName),
			Item:      item,
		})
		if err == nil {
			break
		}
		if attempt == 3 || ctx.Err() != nil {
			return fmt.Errorf("[DynamoDB] Failed to save persona %s: %w", persona.ID, err)
		}
		slog.Warn("[DynamoDB] Retrying persona save...",
			slog.Int("retry_attempt", attempt),
			slog.String("error", err.Error()))
		time.Sleep(backoff)
		backoff *= 2
	}

	slog.Debug("[DynamoDB] Saved persona",
		slog.String("persona_id", persona.ID),
		slog.Int("post_count", persona.PostCount))
	return nil
}

func (t *PersonaTable) LoadAll(ctx context.Context) ([]models.BotPersona, error) {
	var personas []models.BotPersona
	paginator := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{
		TableName: aws.String(t.tableName),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for personas failed: %w", err)
		}
		var page []models.BotPersona
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal persona page", slog.String("error", err.Error()))
			return nil, err
		}
		personas = append(personas, page...)
	}

	slog.Info("[DynamoDB] Successfully retrieved personas", slog.Int("count", len(personas)))
	return personas, nil
}
