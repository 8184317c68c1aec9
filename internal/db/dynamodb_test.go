package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/photobot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo returns one stored item per Scan page.
type fakeDynamo struct {
	mu       sync.Mutex
	items    []map[string]types.AttributeValue
	putFails int
	puts     int
	tables   []string
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.tables = append(f.tables, aws.ToString(in.TableName))
	if f.puts <= f.putFails {
		return nil, errors.New("throttled")
	}
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if in.ExclusiveStartKey != nil {
		start = len(f.items) - 1
	}
	out := &dynamodb.ScanOutput{}
	if start < len(f.items) {
		out.Items = f.items[start : start+1]
	}
	if start == 0 && len(f.items) > 1 {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "cursor"}}
	}
	return out, nil
}

func persona(id string, posts int) models.BotPersona {
	return models.BotPersona{
		ID:              id,
		Username:        "luna_stone_" + id,
		DisplayName:     "Luna Stone",
		PersonalityType: models.PersonalityPhotographer,
		AvatarRef:       "https://api.dicebear.com/7.x/avataaars/svg?seed=" + id,
		CreatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		PostCount:       posts,
	}
}

func TestPersonaTableRoundTrip(t *testing.T) {
	client := &fakeDynamo{}
	table := NewPersonaTable(client, "")

	require.NoError(t, table.Save(context.Background(), persona("a", 0)))
	require.NoError(t, table.Save(context.Background(), persona("b", 4)))
	assert.Equal(t, []string{DEFAULT_PERSONA_TABLE_NAME, DEFAULT_PERSONA_TABLE_NAME}, client.tables)

	loaded, err := table.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].ID)
	assert.Equal(t, 4, loaded[1].PostCount)
	assert.True(t, loaded[0].CreatedAt.Equal(persona("a", 0).CreatedAt))
	assert.False(t, loaded[0].HasPosted())
}

func TestPersonaTableSaveRetries(t *testing.T) {
	client := &fakeDynamo{putFails: 2}
	require.NoError(t, NewPersonaTable(client, "personas").Save(context.Background(), persona("a", 1)))
	assert.Equal(t, 3, client.puts)
}

func TestPersonaTableSaveGivesUp(t *testing.T) {
	client := &fakeDynamo{putFails: 10}
	err := NewPersonaTable(client, "personas").Save(context.Background(), persona("a", 1))
	require.Error(t, err)
	assert.Equal(t, 3, client.puts)
}
