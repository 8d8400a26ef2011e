package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/metrics"

	"go.uber.org/zap"
)

// Names of the hosted functions the portal calls.
const (
	FnSendInvitationEmail        = "send-invitation-email"
	FnSendGrowthBonusReport      = "send-growth-bonus-report"
	FnSendRoleChangeNotification = "send-role-change-notification"
	FnGenerateAnnouncementImage  = "generate-announcement-image"
)

var ErrFunctionsNotConfigured = errors.New("functions gateway not configured")

// FunctionInvoker calls a named hosted function with a JSON body.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, payload interface{}, out interface{}) error
}

// FunctionsClient posts to {base}/functions/v1/{name} with the service key.
type FunctionsClient struct {
	baseURL string
	key     string
	client  *http.Client
}

func NewFunctionsClient(cfg config.FunctionsConfig) *FunctionsClient {
	return &FunctionsClient{
		baseURL: cfg.BaseURL,
		key:     cfg.ServiceKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FunctionError is a non-2xx reply from the gateway.
type FunctionError struct {
	Name   string
	Status int
	Body   string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s returned %d: %s", e.Name, e.Status, e.Body)
}

func (f *FunctionsClient) Invoke(ctx context.Context, name string, payload interface{}, out interface{}) error {
	if f.baseURL == "" {
		return ErrFunctionsNotConfigured
	}
	defer metrics.TrackExternalCall("functions", name)(time.Now())

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/functions/v1/"+name, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.key != "" {
		req.Header.Set("Authorization", "Bearer "+f.key)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FunctionError{Name: name, Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s response: %w", name, err)
		}
	}
	return nil
}

// notify invokes a function whose failure must not fail the caller.
func notify(ctx context.Context, fn FunctionInvoker, name string, payload interface{}) bool {
	if fn == nil {
		return false
	}
	if err := fn.Invoke(ctx, name, payload, nil); err != nil {
		config.Log().Warn("Function call failed", zap.String("function", name), zap.Error(err))
		return false
	}
	return true
}
