// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package mailer is a thin client for the transactional notifier service.
// Delivery is best effort, callers must not fail their transaction on a
// mailer error.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"
)

const invitationTemplate = "tenant-invitation"

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

type sendRequest struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars"`
}

func (c *Client) SendInvitation(ctx context.Context, email, tenantName, inviterName, link string) error {
	ctx, span := c.tracer.Start(ctx, "mailer.Client.SendInvitation")
	defer span.End()

	payload := sendRequest{
		To:       email,
		Template: invitationTemplate,
		Vars: map[string]string{
			"tenant":  tenantName,
			"inviter": inviterName,
			"link":    link,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notifier returned status %d", resp.StatusCode)
	}

	return nil
}

func NewClient(baseURL, apiKey string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
