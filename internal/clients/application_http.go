// internal/clients/application_http.go
package clients

import (
	"context"
	"fmt"
	"net/http"

	"loan-workflow/internal/common/config"
	"loan-workflow/internal/common/httpclient"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/models"
)

// IdempotencyKeyHeader carries the caller-supplied token on retry-safe writes.
const IdempotencyKeyHeader = "Idempotency-Key"

type applicationHTTP struct {
	http    *httpclient.Client
	baseURL string
}

// NewApplicationService returns the HTTP implementation of the application
// service contract.
func NewApplicationService(cfg config.CollaboratorConfig, log logger.Logger) ApplicationService {
	return &applicationHTTP{
		http:    httpclient.New("application", cfg.Budget(), log),
		baseURL: cfg.BaseURL,
	}
}

func (c *applicationHTTP) Get(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	url := fmt.Sprintf("%s/applications/%s", c.baseURL, id)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, nil, &app, nil); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *applicationHTTP) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	var created models.Application
	url := fmt.Sprintf("%s/applications", c.baseURL)
	if err := c.http.DoJSON(ctx, http.MethodPost, url, app, &created, nil); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *applicationHTTP) Update(ctx context.Context, app *models.Application) error {
	url := fmt.Sprintf("%s/applications/%s", c.baseURL, app.ID)
	return c.http.DoJSON(ctx, http.MethodPut, url, app, nil, nil)
}

func (c *applicationHTTP) Submit(ctx context.Context, id, idempotencyKey string) (models.ApplicationStatus, error) {
	var resp struct {
		Status models.ApplicationStatus `json:"status"`
	}
	url := fmt.Sprintf("%s/applications/%s/submit", c.baseURL, id)
	headers := map[string]string{IdempotencyKeyHeader: idempotencyKey}
	if err := c.http.DoJSON(ctx, http.MethodPost, url, nil, &resp, headers); err != nil {
		return "", err
	}
	return resp.Status, nil
}
