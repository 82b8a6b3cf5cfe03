package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const webhookTimeout = 10 * time.Second

// NotifySupport posts an alert to the support webhook. It is meant to run in
// a goroutine so the customer's response is not blocked. Used for payments
// that succeeded at the gateway but could not be recorded on the order.
func NotifySupport(webhookURL string, payload map[string]interface{}, logger *zap.Logger) {
	if webhookURL == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Webhook: failed to marshal support payload", zap.Error(err))
		return
	}
	client := &http.Client{Timeout: webhookTimeout}
	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Warn("Webhook: failed to create request", zap.String("url", webhookURL), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("Webhook: support notification request failed", zap.String("url", webhookURL), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("Webhook: support notification returned non-2xx",
			zap.String("url", webhookURL), zap.Int("status", resp.StatusCode))
		return
	}
	logger.Info("Webhook: support notification sent", zap.String("url", webhookURL), zap.Int("status", resp.StatusCode))
}
