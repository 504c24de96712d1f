// internal/clients/verification_http.go
//
// HTTP implementations for the bank verification, credit-bureau and e-KYC
// collaborators.
package clients

import (
	"context"
	"fmt"
	"net/http"

	"loan-workflow/internal/common/config"
	"loan-workflow/internal/common/httpclient"
	"loan-workflow/internal/common/logger"
)

type bankHTTP struct {
	http    *httpclient.Client
	baseURL string
}

func NewBankVerifier(cfg config.CollaboratorConfig, log logger.Logger) BankVerifier {
	return &bankHTTP{
		http:    httpclient.New("bank-verification", cfg.Budget(), log),
		baseURL: cfg.BaseURL,
	}
}

func (c *bankHTTP) VerifyName(ctx context.Context, account, ifsc, holderName string) (bool, error) {
	body := map[string]string{"account": account, "ifsc": ifsc, "holderName": holderName}
	var resp struct {
		Match bool `json:"match"`
	}
	url := fmt.Sprintf("%s/verify-name", c.baseURL)
	if err := c.http.DoJSON(ctx, http.MethodPost, url, body, &resp, nil); err != nil {
		return false, err
	}
	return resp.Match, nil
}

func (c *bankHTTP) PennyDrop(ctx context.Context, account, ifsc string, amount float64) (string, error) {
	body := map[string]interface{}{"account": account, "ifsc": ifsc, "amount": amount}
	var resp struct {
		RequestID string `json:"requestId"`
	}
	url := fmt.Sprintf("%s/penny-drop", c.baseURL)
	if err := c.http.DoJSON(ctx, http.MethodPost, url, body, &resp, nil); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

func (c *bankHTTP) Status(ctx context.Context, requestID string) (StatusResult, error) {
	var resp StatusResult
	url := fmt.Sprintf("%s/penny-drop/%s", c.baseURL, requestID)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, nil, &resp, nil); err != nil {
		return StatusResult{}, err
	}
	return resp, nil
}

type bureauHTTP struct {
	http    *httpclient.Client
	baseURL string
}

func NewBureauClient(cfg config.CollaboratorConfig, log logger.Logger) BureauClient {
	return &bureauHTTP{
		http:    httpclient.New("credit-bureau", cfg.Budget(), log),
		baseURL: cfg.BaseURL,
	}
}

func (c *bureauHTTP) Pull(ctx context.Context, pan, dob, mobile string) (string, error) {
	body := map[string]string{"pan": pan, "dob": dob, "mobile": mobile}
	var resp struct {
		RequestID string `json:"requestId"`
	}
	url := fmt.Sprintf("%s/reports", c.baseURL)
	if err := c.http.DoJSON(ctx, http.MethodPost, url, body, &resp, nil); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

func (c *bureauHTTP) Report(ctx context.Context, requestID string) (BureauReport, error) {
	var resp BureauReport
	url := fmt.Sprintf("%s/reports/%s", c.baseURL, requestID)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, nil, &resp, nil); err != nil {
		return BureauReport{}, err
	}
	return resp, nil
}

type ekycHTTP struct {
	http    *httpclient.Client
	baseURL string
}

func NewEKYCClient(cfg config.CollaboratorConfig, log logger.Logger) EKYCClient {
	return &ekycHTTP{
		http:    httpclient.New("ekyc", cfg.Budget(), log),
		baseURL: cfg.BaseURL,
	}
}

func (c *ekycHTTP) Start(ctx context.Context, applicantID, idNumber, mobile string) (string, error) {
	body := map[string]string{"applicantId": applicantID, "idNumber": idNumber, "mobile": mobile}
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	url := fmt.Sprintf("%s/sessions", c.baseURL)
	if err := c.http.DoJSON(ctx, http.MethodPost, url, body, &resp, nil); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (c *ekycHTTP) SubmitOTP(ctx context.Context, sessionID, otp string) (bool, error) {
	body := map[string]string{"otp": otp}
	var resp struct {
		Verified bool `json:"verified"`
	}
	url := fmt.Sprintf("%s/sessions/%s/otp", c.baseURL, sessionID)
	if err := c.http.DoJSON(ctx, http.MethodPost, url, body, &resp, nil); err != nil {
		return false, err
	}
	return resp.Verified, nil
}

func (c *ekycHTTP) Status(ctx context.Context, sessionID string) (StatusResult, error) {
	var resp StatusResult
	url := fmt.Sprintf("%s/sessions/%s", c.baseURL, sessionID)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, nil, &resp, nil); err != nil {
		return StatusResult{}, err
	}
	return resp, nil
}
