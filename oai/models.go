package oai

import (
	"context"
	"fmt"
)

// Model describes one model available to the caller.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Deleted is the generic deletion acknowledgement the API returns.
type Deleted struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// ListModels returns the models the configured backend exposes.
func (c *Client) ListModels(ctx context.Context) (*ModelList, error) {
	var out ModelList
	if err := c.Get(ctx, "/models", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetModel fetches one model by ID.
func (c *Client) GetModel(ctx context.Context, id string) (*Model, error) {
	var out Model
	if err := c.Get(ctx, fmt.Sprintf("/models/%s", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteModel deletes a fine-tuned model the caller owns.
func (c *Client) DeleteModel(ctx context.Context, id string) (*Deleted, error) {
	var out Deleted
	if err := c.Delete(ctx, fmt.Sprintf("/models/%s", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
