package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"llm-toolbox/internal/domain"
)

func TestRecordToolCall_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.RecordToolCall(context.Background(), domain.ToolCall{
		ID:         "call-1",
		Tool:       "roll_dice",
		Arguments:  `{"notation":"2d6"}`,
		Output:     "ROLLS: 6, 2 -> RETURNS: 8",
		DurationMS: 3,
	})
	require.NoError(t, err)

	item := db.lastPutInput.Item
	require.Equal(t, "TOOL#roll_dice", sAttr(item, "PK"))
	require.Equal(t, "CALL#2026-02-27T12:00:00Z#call-1", sAttr(item, "SK"))
	require.Equal(t, "ROLLS: 6, 2 -> RETURNS: 8", sAttr(item, "output"))
	require.Equal(t, "3", nAttr(item, "durationMs"))
	require.NotContains(t, item, "error")
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *db.lastPutInput.ConditionExpression)
}

func TestRecordToolCall_KeepsError(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	err := c.RecordToolCall(context.Background(), domain.ToolCall{ID: "c", Tool: "poet", Error: "upstream down"})
	require.NoError(t, err)
	require.Equal(t, "upstream down", sAttr(db.lastPutInput.Item, "error"))
	require.NotContains(t, db.lastPutInput.Item, "output")
}

func TestRecordToolCall_Validation(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	require.Error(t, c.RecordToolCall(context.Background(), domain.ToolCall{Tool: "poet"}))
	require.Error(t, c.RecordToolCall(context.Background(), domain.ToolCall{ID: "x"}))
}

func TestRecordToolCall_PutError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")})
	err := c.RecordToolCall(context.Background(), domain.ToolCall{ID: "c", Tool: "poet"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "RecordToolCall")
}

func TestRecentToolCalls_HappyPath(t *testing.T) {
	call := domain.ToolCall{ID: "c1", Tool: "poet", Arguments: `{"theme":"sea"}`, Output: "waves", DurationMS: 120, At: fixedNow}
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{toolCallItem(call)}}}
	c := mustNewClient(t, db)

	calls, err := c.RecentToolCalls(context.Background(), "poet", 10)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, call.ID, calls[0].ID)
	require.Equal(t, call.Output, calls[0].Output)
	require.Equal(t, int64(120), calls[0].DurationMS)
	require.True(t, calls[0].At.Equal(fixedNow))

	require.Equal(t, "TOOL#poet", db.lastQueryIn.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value)
	require.False(t, *db.lastQueryIn.ScanIndexForward)
}

func TestRecentToolCalls_BadTimestamp(t *testing.T) {
	item := toolCallItem(domain.ToolCall{ID: "c1", Tool: "poet", At: fixedNow})
	item["at"] = &types.AttributeValueMemberS{Value: "yesterday"}
	c := mustNewClient(t, &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}})
	_, err := c.RecentToolCalls(context.Background(), "poet", 10)
	require.ErrorContains(t, err, "parse attribute")
}

func TestRecentToolCalls_QueryError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{queryErr: errors.New("boom")})
	_, err := c.RecentToolCalls(context.Background(), "poet", 10)
	require.ErrorContains(t, err, "RecentToolCalls")
}

func TestCallSK_SortsByTime(t *testing.T) {
	earlier := callSK(domain.ToolCall{ID: "b", At: fixedNow})
	later := callSK(domain.ToolCall{ID: "a", At: fixedNow.Add(time.Second)})
	require.Less(t, earlier, later)
}
