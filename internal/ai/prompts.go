package ai

import (
	"context"
	"fmt"
)

// GenerateTitle asks for a concise ticket title.
func (c *Client) GenerateTitle(ctx context.Context, description string) (string, error) {
	return c.Complete(ctx, fmt.Sprintf("Generate a concise title for this support ticket based on the description: %s", description))
}

// GeneratePriority asks for one of Low, Medium, High or Critical. The answer
// is not checked against that set here.
func (c *Client) GeneratePriority(ctx context.Context, description string) (string, error) {
	return c.Complete(ctx, fmt.Sprintf("Based on the following support ticket description, suggest an appropriate priority level (Low, Medium, High, or Critical). Only respond with one of these four priority levels. Description: %s", description))
}

// GenerateStepsToReproduce asks for reproduction steps.
func (c *Client) GenerateStepsToReproduce(ctx context.Context, description string) (string, error) {
	return c.Complete(ctx, fmt.Sprintf("Generate steps to reproduce the issue described in this support ticket: %s", description))
}

// SuggestCategory asks for a single category name.
func (c *Client) SuggestCategory(ctx context.Context, description string) (string, error) {
	return c.Complete(ctx, fmt.Sprintf("Based on the following support ticket description, suggest the most appropriate category. Respond with a single category name. Description: %s", description))
}
