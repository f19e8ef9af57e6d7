package shopify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/metalrate/internal/pricing"
)

const maxVariantsBatchSize = 250

// UserErrorsError carries the userErrors of a failed mutation.
type UserErrorsError struct {
	Action   string
	Messages []string
}

func (e *UserErrorsError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("shopify %s failed with user errors", e.Action)
	}
	return fmt.Sprintf("shopify %s failed: %s", e.Action, strings.Join(e.Messages, "; "))
}

// UpdatePrices applies the submission one product at a time, in batches of at
// most 250 variants. It stops at the first failing batch; Updated counts the
// variants acknowledged before that.
func (c *Client) UpdatePrices(ctx context.Context, sub pricing.Submission) (pricing.Outcome, error) {
	if len(sub.Updates) == 0 {
		return pricing.Outcome{OK: true}, nil
	}

	order := make([]string, 0)
	byProduct := make(map[string][]pricing.ChangeRecord)
	for _, rec := range sub.Updates {
		if _, ok := byProduct[rec.ProductID]; !ok {
			order = append(order, rec.ProductID)
		}
		byProduct[rec.ProductID] = append(byProduct[rec.ProductID], rec)
	}

	updated := 0
	for _, productID := range order {
		items := byProduct[productID]
		for start := 0; start < len(items); start += maxVariantsBatchSize {
			end := min(start+maxVariantsBatchSize, len(items))
			n, err := c.updateBatch(ctx, productID, items[start:end])
			updated += n
			if err != nil {
				c.logger.Error("shopify price update failed",
					zap.String("product_id", productID),
					zap.Int("updated", updated),
					zap.Error(err),
				)
				return pricing.Outcome{OK: false, Updated: updated}, err
			}
		}
	}

	c.logger.Info("shopify prices updated",
		zap.Int("requested", len(sub.Updates)),
		zap.Int("updated", updated),
	)
	return pricing.Outcome{OK: true, Updated: updated}, nil
}

func (c *Client) updateBatch(ctx context.Context, productID string, batch []pricing.ChangeRecord) (int, error) {
	variants := make([]map[string]any, 0, len(batch))
	for _, rec := range batch {
		variants = append(variants, map[string]any{
			"id":    rec.VariantID,
			"price": pricing.FormatAmount(rec.NewPrice),
		})
	}

	var data bulkUpdateData
	if err := c.Execute(ctx, ProductVariantsBulkUpdateMutation, map[string]any{
		"productId": productID,
		"variants":  variants,
	}, &data); err != nil {
		return 0, err
	}

	result := data.ProductVariantsBulkUpdate
	if len(result.UserErrors) > 0 {
		messages := make([]string, 0, len(result.UserErrors))
		for _, ue := range result.UserErrors {
			msg := strings.TrimSpace(ue.Message)
			if len(ue.Field) > 0 {
				msg = strings.Join(ue.Field, ".") + ": " + msg
			}
			messages = append(messages, msg)
		}
		return len(result.ProductVariants), &UserErrorsError{Action: "productVariantsBulkUpdate", Messages: messages}
	}
	return len(result.ProductVariants), nil
}
