package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"llm-toolbox/internal/domain"
)

const skPrefixCall = "CALL#"

// Journal records tool invocations.
type Journal interface {
	RecordToolCall(ctx context.Context, call domain.ToolCall) error
	RecentToolCalls(ctx context.Context, tool string, limit int) ([]domain.ToolCall, error)
}

func toolPK(tool string) string {
	return "TOOL#" + tool
}

func callSK(call domain.ToolCall) string {
	return skPrefixCall + call.At.UTC().Format(time.RFC3339Nano) + "#" + call.ID
}

// RecordToolCall stores one invocation under its tool's partition.
func (c *Client) RecordToolCall(ctx context.Context, call domain.ToolCall) error {
	if call.Tool == "" || call.ID == "" {
		return errors.New("repository: RecordToolCall: tool and id are required")
	}
	if call.At.IsZero() {
		call.At = c.now()
	}
	if call.TTL == 0 {
		call.TTL = ttlFrom(call.At)
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                toolCallItem(call),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: RecordToolCall: %w", err)
	}
	return nil
}

// RecentToolCalls returns up to limit calls of tool, newest first.
func (c *Client) RecentToolCalls(ctx context.Context, tool string, limit int) ([]domain.ToolCall, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: toolPK(tool)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixCall},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: RecentToolCalls query: %w", err)
	}

	calls := make([]domain.ToolCall, 0, len(out.Items))
	for _, item := range out.Items {
		call, err := itemToToolCall(item)
		if err != nil {
			return nil, fmt.Errorf("repository: RecentToolCalls unmarshal: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}

func toolCallItem(call domain.ToolCall) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: toolPK(call.Tool)},
		"SK":         &types.AttributeValueMemberS{Value: callSK(call)},
		"id":         &types.AttributeValueMemberS{Value: call.ID},
		"tool":       &types.AttributeValueMemberS{Value: call.Tool},
		"arguments":  &types.AttributeValueMemberS{Value: call.Arguments},
		"at":         &types.AttributeValueMemberS{Value: call.At.UTC().Format(time.RFC3339Nano)},
		"durationMs": numAttr(call.DurationMS),
		"ttl":        numAttr(call.TTL),
	}
	if call.Output != "" {
		item["output"] = &types.AttributeValueMemberS{Value: call.Output}
	}
	if call.Error != "" {
		item["error"] = &types.AttributeValueMemberS{Value: call.Error}
	}
	return item
}

func itemToToolCall(item map[string]types.AttributeValue) (domain.ToolCall, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.ToolCall{}, err
	}
	tool, err := strAttr(item, "tool")
	if err != nil {
		return domain.ToolCall{}, err
	}
	rawAt, err := strAttr(item, "at")
	if err != nil {
		return domain.ToolCall{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, rawAt)
	if err != nil {
		return domain.ToolCall{}, fmt.Errorf("repository: parse attribute \"at\": %w", err)
	}
	args, _ := strAttr(item, "arguments")
	output, _ := strAttr(item, "output")
	callErr, _ := strAttr(item, "error")
	duration, _ := intAttr(item, "durationMs")

	return domain.ToolCall{
		ID:         id,
		Tool:       tool,
		Arguments:  args,
		Output:     output,
		Error:      callErr,
		DurationMS: int64(duration),
		At:         at,
	}, nil
}
