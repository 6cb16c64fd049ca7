package kafka

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONHandler decodes the message value into T before handing it on.
// A payload that does not decode is a poison message; the error is
// returned so the consumer logs it and moves past.
func JSONHandler[T any](handle func(ctx context.Context, key []byte, msg T) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var msg T
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		return handle(ctx, key, msg)
	}
}
