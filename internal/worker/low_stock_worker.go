package worker

// low_stock_worker.go
// Processes low-stock alert jobs from QueueLowStock. Every alerted product is
// logged and its latest alert is kept in the alerts:low_stock hash so
// dashboards can read it without touching the database.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const LowStockAlertsKey = "alerts:low_stock"

// LowStockProduct is a product whose stock fell to or below its threshold.
type LowStockProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
}

// LowStockJobPayload is the job envelope sent to QueueLowStock.
type LowStockJobPayload struct {
	Reference string            `json:"reference"` // transaction code that triggered the alert
	Products  []LowStockProduct `json:"products"`
}

type lowStockAlert struct {
	LowStockProduct
	Reference string `json:"reference"`
	AlertedAt string `json:"alerted_at"`
}

// AlertMailer delivers a low-stock alert by mail.
type AlertMailer interface {
	SendAlert(subject, body string) error
}

// LowStockWorker processes low-stock alert jobs.
type LowStockWorker struct {
	rdb    *redis.Client
	mailer AlertMailer
	now    func() time.Time
}

// NewLowStockWorker creates the worker. rdb and mailer may be nil; alerts are
// always logged.
func NewLowStockWorker(rdb *redis.Client, mailer AlertMailer) *LowStockWorker {
	return &LowStockWorker{rdb: rdb, mailer: mailer, now: time.Now}
}

// Process logs each alerted product and records it in Redis.
func (w *LowStockWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload LowStockJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A malformed payload will never succeed; drop it instead of retrying.
		log.Error().Err(err).Msg("low_stock_worker: invalid payload")
		return nil
	}
	if len(payload.Products) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(payload.Products))
	for _, p := range payload.Products {
		log.Warn().
			Str("product_id", p.ProductID).
			Str("name", p.Name).
			Int("stock", p.Stock).
			Int("min_stock", p.MinStock).
			Str("reference", payload.Reference).
			Msg("low_stock_worker: product at or below minimum stock")

		alert, err := json.Marshal(lowStockAlert{
			LowStockProduct: p,
			Reference:       payload.Reference,
			AlertedAt:       w.now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		fields[p.ProductID] = alert
	}

	if w.rdb != nil {
		if err := w.rdb.HSet(ctx, LowStockAlertsKey, fields).Err(); err != nil {
			return fmt.Errorf("record low stock alerts: %w", err)
		}
	}

	// Mail failures are logged, not retried.
	if w.mailer != nil {
		subject, body := alertMail(payload)
		if err := w.mailer.SendAlert(subject, body); err != nil {
			log.Error().Err(err).Str("reference", payload.Reference).Msg("low_stock_worker: alert mail failed")
		}
	}
	return nil
}

func alertMail(payload LowStockJobPayload) (subject, body string) {
	subject = fmt.Sprintf("Low stock: %d product(s)", len(payload.Products))
	var b strings.Builder
	fmt.Fprintf(&b, "These products are at or below their minimum stock after %s:\n\n", payload.Reference)
	for _, p := range payload.Products {
		fmt.Fprintf(&b, "- %s: %d left (minimum %d)\n", p.Name, p.Stock, p.MinStock)
	}
	return subject, b.String()
}
