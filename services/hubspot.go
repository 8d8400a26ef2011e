package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/metrics"
	"salonportal-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrHubSpotNotConnected  = errors.New("hubspot is not connected")
	ErrHubSpotNotConfigured = errors.New("hubspot client id/secret not configured")
	ErrCompanyNotFound      = errors.New("no hubspot company with that org number")
)

// Company properties specific to the portal's HubSpot account.
const (
	PropSupplierRole    = "leverandrrolle"
	PropPartnerSupplier = "samarbeidspartnerleverandr"
	PropOrgNumber       = "orgnr"
)

// tokenSkew refreshes tokens a little before HubSpot expires them.
const tokenSkew = time.Minute

type HubSpotClient struct {
	db     *gorm.DB
	cfg    config.HubSpotConfig
	client *http.Client
	now    func() time.Time

	mu sync.Mutex
}

func NewHubSpotClient(db *gorm.DB, cfg config.HubSpotConfig) *HubSpotClient {
	return &HubSpotClient{
		db:     db,
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
}

type hubspotToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type hubspotErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer from HubSpot.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot returned %d: %s", e.Status, e.Message)
}

// AuthorizeURL is where the admin is sent to grant access.
func (h *HubSpotClient) AuthorizeURL(state string) (string, error) {
	if h.cfg.ClientID == "" {
		return "", ErrHubSpotNotConfigured
	}
	q := url.Values{}
	q.Set("client_id", h.cfg.ClientID)
	q.Set("redirect_uri", h.cfg.RedirectURL)
	q.Set("scope", h.cfg.Scopes)
	q.Set("state", state)
	return h.cfg.AuthorizeURL + "?" + q.Encode(), nil
}

func (h *HubSpotClient) requestToken(ctx context.Context, form url.Values) (*hubspotToken, error) {
	if h.cfg.ClientID == "" || h.cfg.ClientSecret == "" {
		return nil, ErrHubSpotNotConfigured
	}
	defer metrics.TrackExternalCall("hubspot", "token")(time.Now())

	form.Set("client_id", h.cfg.ClientID)
	form.Set("client_secret", h.cfg.ClientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.APIBaseURL+"/oauth/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hubspot token request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}
	var tok hubspotToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode hubspot token: %w", err)
	}
	return &tok, nil
}

// Exchange trades an authorization code for tokens and stores them as the
// portal's single connection.
func (h *HubSpotClient) Exchange(ctx context.Context, code string, connectedBy uuid.UUID) (*models.HubSpotConnection, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", h.cfg.RedirectURL)
	form.Set("code", code)
	tok, err := h.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}

	conn := models.HubSpotConnection{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    h.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		ConnectedBy:  connectedBy,
		PortalID:     h.lookupPortalID(ctx, tok.AccessToken),
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.HubSpotConnection{}).Error; err != nil {
			return err
		}
		return tx.Create(&conn).Error
	})
	if err != nil {
		return nil, err
	}
	config.Log().Info("HubSpot connected", zap.String("portal_id", conn.PortalID))
	return &conn, nil
}

func (h *HubSpotClient) lookupPortalID(ctx context.Context, accessToken string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.APIBaseURL+"/oauth/v1/access-tokens/"+url.PathEscape(accessToken), nil)
	if err != nil {
		return ""
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	var info struct {
		HubID json.Number `json:"hub_id"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&info) != nil {
		return ""
	}
	return info.HubID.String()
}

// Connection returns the stored connection, if any.
func (h *HubSpotClient) Connection(ctx context.Context) (*models.HubSpotConnection, error) {
	var conn models.HubSpotConnection
	if err := h.db.WithContext(ctx).Order("created_at DESC").First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHubSpotNotConnected
		}
		return nil, err
	}
	return &conn, nil
}

func (h *HubSpotClient) Disconnect(ctx context.Context) error {
	return h.db.WithContext(ctx).Where("1 = 1").Delete(&models.HubSpotConnection{}).Error
}

func (h *HubSpotClient) refresh(ctx context.Context, conn *models.HubSpotConnection) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", conn.RefreshToken)
	tok, err := h.requestToken(ctx, form)
	if err != nil {
		return err
	}
	conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	conn.ExpiresAt = h.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return h.db.WithContext(ctx).Model(conn).
		Select("access_token", "refresh_token", "expires_at").
		Updates(conn).Error
}

// accessToken returns a usable token, refreshing it when expired or when
// force is set.
func (h *HubSpotClient) accessToken(ctx context.Context, force bool) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, err := h.Connection(ctx)
	if err != nil {
		return "", err
	}
	if force || !h.now().Add(tokenSkew).Before(conn.ExpiresAt) {
		if err := h.refresh(ctx, conn); err != nil {
			return "", fmt.Errorf("refresh hubspot token: %w", err)
		}
	}
	return conn.AccessToken, nil
}

// call performs an authenticated request. A 401 triggers one token refresh
// and one retry; nothing else is retried.
func (h *HubSpotClient) call(ctx context.Context, method, path string, in, out interface{}) error {
	defer metrics.TrackExternalCall("hubspot", method+" "+path)(time.Now())

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}

	token, err := h.accessToken(ctx, false)
	if err != nil {
		return err
	}
	status, body, err := h.send(ctx, method, path, token, payload)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if token, err = h.accessToken(ctx, true); err != nil {
			return err
		}
		if status, body, err = h.send(ctx, method, path, token, payload); err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return apiError(status, body)
	}
	if out != nil && len(body) > 0 {
		return json.Unmarshal(body, out)
	}
	return nil
}

func (h *HubSpotClient) send(ctx context.Context, method, path, token string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.cfg.APIBaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("hubspot %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	return resp.StatusCode, raw, err
}

func apiError(status int, body []byte) error {
	var eb hubspotErrorBody
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		msg = eb.Message
	}
	return &APIError{Status: status, Message: msg}
}

// CRM objects

type CRMObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type searchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchRequest struct {
	FilterGroups []struct {
		Filters []searchFilter `json:"filters"`
	} `json:"filterGroups"`
	Properties []string `json:"properties"`
	Limit      int      `json:"limit"`
}

type searchResponse struct {
	Total   int         `json:"total"`
	Results []CRMObject `json:"results"`
}

func newSearch(property, value string, limit int, properties ...string) searchRequest {
	req := searchRequest{Properties: properties, Limit: limit}
	req.FilterGroups = make([]struct {
		Filters []searchFilter `json:"filters"`
	}, 1)
	req.FilterGroups[0].Filters = []searchFilter{{PropertyName: property, Operator: "EQ", Value: value}}
	return req
}

// SearchContactByEmail returns the contact with email, or nil.
func (h *HubSpotClient) SearchContactByEmail(ctx context.Context, email string) (*CRMObject, error) {
	var resp searchResponse
	req := newSearch("email", strings.ToLower(strings.TrimSpace(email)), 1,
		"email", "firstname", "lastname", "phone", "company", "hubspot_owner_id")
	if err := h.call(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

type ContactInput struct {
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	OwnerID   string `json:"hubspot_owner_id,omitempty"`
}

func (h *HubSpotClient) CreateContact(ctx context.Context, in ContactInput) (*CRMObject, error) {
	var out CRMObject
	if err := h.call(ctx, http.MethodPost, "/crm/v3/objects/contacts", map[string]interface{}{"properties": in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchCompaniesByOrgNumber finds companies by the custom orgnr property.
func (h *HubSpotClient) SearchCompaniesByOrgNumber(ctx context.Context, orgNumber string) ([]CRMObject, error) {
	var resp searchResponse
	req := newSearch(PropOrgNumber, orgNumber, 10,
		"name", "domain", PropOrgNumber, PropSupplierRole, PropPartnerSupplier)
	if err := h.call(ctx, http.MethodPost, "/crm/v3/objects/companies/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

type Owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *HubSpotClient) ListOwners(ctx context.Context) ([]Owner, error) {
	var resp struct {
		Results []Owner `json:"results"`
	}
	if err := h.call(ctx, http.MethodGet, "/crm/v3/owners?limit=100", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SyncSupplier looks the supplier up in HubSpot by org number and stores
// the company id. A company flagged with a supplier role is preferred when
// several share the org number.
func (h *HubSpotClient) SyncSupplier(ctx context.Context, supplierID uuid.UUID, orgNumber string) (*models.Supplier, *CRMObject, error) {
	var supplier models.Supplier
	if err := h.db.WithContext(ctx).First(&supplier, "id = ?", supplierID).Error; err != nil {
		return nil, nil, err
	}
	companies, err := h.SearchCompaniesByOrgNumber(ctx, orgNumber)
	if err != nil {
		return nil, nil, err
	}
	if len(companies) == 0 {
		return nil, nil, ErrCompanyNotFound
	}
	match := companies[0]
	for _, c := range companies {
		if c.Properties[PropSupplierRole] != "" || c.Properties[PropPartnerSupplier] == "true" {
			match = c
			break
		}
	}

	id := match.ID
	supplier.HubSpotCompanyID = &id
	if err := h.db.WithContext(ctx).Model(&supplier).Update("hubspot_company_id", id).Error; err != nil {
		return nil, nil, err
	}
	return &supplier, &match, nil
}
