package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/somandosabores/paynotify/internal/logging"
)

// replay delivers one payment-received webhook to a running instance
// and then immediately redelivers it, the way Asaas does when an
// acknowledgment gets lost. The second response should come back with
// duplicate=true and no extra side effects.
func main() {
	var (
		target    = flag.String("target", "http://localhost:8080", "base URL of the running service")
		token     = flag.String("token", os.Getenv("WEBHOOK_TOKEN"), "webhook auth token")
		paymentID = flag.String("payment", "pay_replay_1", "provider payment id to deliver")
		ref       = flag.String("ref", "", "booking id to carry as externalReference")
		value     = flag.Float64("value", 150.00, "payment amount")
		count     = flag.Int("count", 2, "number of deliveries")
	)
	flag.Parse()

	logging.Init("paynotify-replay", "info", os.Getenv("APP_ENV"))

	if *token == "" {
		slog.Error("a webhook token is required (flag -token or WEBHOOK_TOKEN)")
		os.Exit(1)
	}
	if *ref == "" {
		slog.Error("a booking id is required (flag -ref)")
		os.Exit(1)
	}

	body, err := json.Marshal(map[string]any{
		"event": "PAYMENT_CONFIRMED",
		"payment": map[string]any{
			"id":                *paymentID,
			"externalReference": *ref,
			"value":             *value,
			"billingType":       "PIX",
			"description":       "replay delivery",
			"confirmedDate":     time.Now().UTC().Format("2006-01-02"),
		},
	})
	if err != nil {
		slog.Error("failed to build event", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	url := *target + "/webhooks/payment-received"

	for i := range *count {
		status, resp, err := deliver(client, url, *token, body)
		if err != nil {
			slog.Error("delivery failed", "attempt", i+1, "error", err)
			os.Exit(1)
		}
		slog.Info("delivered", "attempt", i+1, "status", status, "response", resp)
	}
}

func deliver(client *http.Client, url, token string, body []byte) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("deliver: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Asaas-Webhook-Token", token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("deliver: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("deliver: read response: %w", err)
	}
	return resp.StatusCode, string(bytes.TrimSpace(payload)), nil
}
