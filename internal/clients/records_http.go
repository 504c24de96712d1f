// internal/clients/records_http.go
//
// HTTP implementations for the applicant, property and document services.
package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"loan-workflow/internal/common/config"
	"loan-workflow/internal/common/httpclient"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/models"
)

type applicantHTTP struct {
	http    *httpclient.Client
	baseURL string
}

func NewApplicantService(cfg config.CollaboratorConfig, log logger.Logger) ApplicantService {
	return &applicantHTTP{
		http:    httpclient.New("applicant", cfg.Budget(), log),
		baseURL: cfg.BaseURL,
	}
}

func (c *applicantHTTP) Get(ctx context.Context, id string) (*models.Applicant, error) {
	var applicant models.Applicant
	url := fmt.Sprintf("%s/applicants/%s", c.baseURL, id)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, nil, &applicant, nil); err != nil {
		return nil, err
	}
	return &applicant, nil
}

func (c *applicantHTTP) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	url := fmt.Sprintf("%s/applicants/%s", c.baseURL, id)
	return c.http.DoJSON(ctx, http.MethodPatch, url, fields, nil, nil)
}

type propertyHTTP struct {
	http    *httpclient.Client
	baseURL string
}

func NewPropertyService(cfg config.CollaboratorConfig, log logger.Logger) PropertyService {
	return &propertyHTTP{
		http:    httpclient.New("property", cfg.Budget(), log),
		baseURL: cfg.BaseURL,
	}
}

func (c *propertyHTTP) Get(ctx context.Context, applicationID string) (*models.PropertyRecord, error) {
	var record models.PropertyRecord
	url := fmt.Sprintf("%s/applications/%s/property", c.baseURL, applicationID)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, nil, &record, nil); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *propertyHTTP) CreateOrUpdate(ctx context.Context, applicationID string, record *models.PropertyRecord) error {
	url := fmt.Sprintf("%s/applications/%s/property", c.baseURL, applicationID)
	return c.http.DoJSON(ctx, http.MethodPut, url, record, nil, nil)
}

type documentHTTP struct {
	http    *httpclient.Client
	baseURL string
}

func NewDocumentService(cfg config.CollaboratorConfig, log logger.Logger) DocumentService {
	return &documentHTTP{
		http:    httpclient.New("document", cfg.Budget(), log),
		baseURL: cfg.BaseURL,
	}
}

func (c *documentHTTP) GetChecklist(ctx context.Context, applicationID string) ([]models.ChecklistItem, error) {
	var resp struct {
		Items []models.ChecklistItem `json:"items"`
	}
	url := fmt.Sprintf("%s/applications/%s/checklist", c.baseURL, applicationID)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *documentHTTP) Upload(ctx context.Context, applicationID, code string, content []byte) error {
	body := map[string]string{
		"code":    code,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	url := fmt.Sprintf("%s/applications/%s/documents", c.baseURL, applicationID)
	return c.http.DoJSON(ctx, http.MethodPost, url, body, nil, nil)
}
