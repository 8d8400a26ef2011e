package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"

	"github.com/google/uuid"
)

// fakeHubSpot serves the token, search and owners endpoints. Access tokens
// are "access-1", "access-2", ... and only the latest one is accepted.
type fakeHubSpot struct {
	issued    int32
	refreshes int32
	companies []CRMObject
}

func (f *fakeHubSpot) current() string {
	return "access-" + string(rune('0'+atomic.LoadInt32(&f.issued)))
}

func (f *fakeHubSpot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/oauth/v1/token":
		r.ParseForm()
		if r.Form.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":"BAD_CLIENT_ID","message":"bad client"}`))
			return
		}
		if r.Form.Get("grant_type") == "refresh_token" {
			atomic.AddInt32(&f.refreshes, 1)
		}
		n := atomic.AddInt32(&f.issued, 1)
		json.NewEncoder(w).Encode(hubspotToken{
			AccessToken:  "access-" + string(rune('0'+n)),
			RefreshToken: "refresh",
			ExpiresIn:    1800,
		})
	case strings.HasPrefix(r.URL.Path, "/oauth/v1/access-tokens/"):
		w.Write([]byte(`{"hub_id": 4242}`))
	case r.Header.Get("Authorization") != "Bearer "+f.current():
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","message":"expired"}`))
	case r.URL.Path == "/crm/v3/objects/companies/search":
		json.NewEncoder(w).Encode(searchResponse{Total: len(f.companies), Results: f.companies})
	case r.URL.Path == "/crm/v3/objects/contacts/search":
		json.NewEncoder(w).Encode(searchResponse{})
	case r.URL.Path == "/crm/v3/owners":
		w.Write([]byte(`{"results":[{"id":"7","email":"selger@example.no","firstName":"Siri","lastName":"Selger"}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newHubSpotFixture(t *testing.T) (*HubSpotClient, *fakeHubSpot) {
	t.Helper()
	fake := &fakeHubSpot{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	h := NewHubSpotClient(newTestDB(t), config.HubSpotConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://portal.example.no/hubspot/callback",
		Scopes:       "crm.objects.contacts.read",
		AuthorizeURL: "https://app.hubspot.com/oauth/authorize",
		APIBaseURL:   srv.URL,
	})
	return h, fake
}

func TestHubSpotAuthorizeURL(t *testing.T) {
	h, _ := newHubSpotFixture(t)
	raw, err := h.AuthorizeURL("abc")
	if err != nil {
		t.Fatalf("authorize url: %v", err)
	}
	u, _ := url.Parse(raw)
	if u.Query().Get("state") != "abc" || u.Query().Get("client_id") != "client" {
		t.Fatalf("unexpected url: %s", raw)
	}

	h.cfg.ClientID = ""
	if _, err := h.AuthorizeURL("abc"); !errors.Is(err, ErrHubSpotNotConfigured) {
		t.Fatalf("expected ErrHubSpotNotConfigured got %v", err)
	}
}

func TestHubSpotExchangeAndRetryOn401(t *testing.T) {
	h, fake := newHubSpotFixture(t)
	ctx := context.Background()

	if _, err := h.ListOwners(ctx); !errors.Is(err, ErrHubSpotNotConnected) {
		t.Fatalf("expected ErrHubSpotNotConnected got %v", err)
	}

	conn, err := h.Exchange(ctx, "code", uuid.New())
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if conn.PortalID != "4242" {
		t.Fatalf("portal id: %q", conn.PortalID)
	}

	owners, err := h.ListOwners(ctx)
	if err != nil || len(owners) != 1 || owners[0].Email != "selger@example.no" {
		t.Fatalf("owners: %+v %v", owners, err)
	}
	if fake.refreshes != 0 {
		t.Fatalf("valid token refreshed")
	}

	// Another client rotated the token behind our back.
	atomic.AddInt32(&fake.issued, 1)
	if _, err := h.ListOwners(ctx); err != nil {
		t.Fatalf("owners after rotation: %v", err)
	}
	if fake.refreshes != 1 {
		t.Fatalf("expected one refresh got %d", fake.refreshes)
	}

	stored, _ := h.Connection(ctx)
	if stored.AccessToken != fake.current() {
		t.Fatalf("refreshed token not stored")
	}
}

func TestHubSpotRefreshesExpiredToken(t *testing.T) {
	h, fake := newHubSpotFixture(t)
	ctx := context.Background()
	if _, err := h.Exchange(ctx, "code", uuid.New()); err != nil {
		t.Fatalf("exchange: %v", err)
	}

	h.now = func() time.Time { return time.Now().Add(time.Hour) }
	contact, err := h.SearchContactByEmail(ctx, "ukjent@example.no")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if contact != nil {
		t.Fatalf("expected no contact")
	}
	if fake.refreshes != 1 {
		t.Fatalf("expired token not refreshed before the call")
	}
}

func TestHubSpotSyncSupplier(t *testing.T) {
	h, fake := newHubSpotFixture(t)
	ctx := context.Background()
	if _, err := h.Exchange(ctx, "code", uuid.New()); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	supplier := &models.Supplier{Name: "Hårpleie AS", IsActive: true}
	mustCreate(t, h.db, supplier)

	if _, _, err := h.SyncSupplier(ctx, supplier.ID, "923609016"); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound got %v", err)
	}

	fake.companies = []CRMObject{
		{ID: "100", Properties: map[string]string{"name": "Hårpleie Salong"}},
		{ID: "200", Properties: map[string]string{"name": "Hårpleie AS", PropSupplierRole: "Leverandør"}},
	}
	updated, company, err := h.SyncSupplier(ctx, supplier.ID, "923609016")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if company.ID != "200" || updated.HubSpotCompanyID == nil || *updated.HubSpotCompanyID != "200" {
		t.Fatalf("supplier company not preferred: %+v", company)
	}

	var stored models.Supplier
	h.db.First(&stored, "id = ?", supplier.ID)
	if stored.HubSpotCompanyID == nil || *stored.HubSpotCompanyID != "200" {
		t.Fatalf("company id not stored")
	}
}

func TestHubSpotDisconnect(t *testing.T) {
	h, _ := newHubSpotFixture(t)
	ctx := context.Background()
	if _, err := h.Exchange(ctx, "code", uuid.New()); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if err := h.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, err := h.Connection(ctx); !errors.Is(err, ErrHubSpotNotConnected) {
		t.Fatalf("expected ErrHubSpotNotConnected got %v", err)
	}
}

func TestHubSpotTokenErrorMessage(t *testing.T) {
	h, _ := newHubSpotFixture(t)
	h.cfg.ClientSecret = "wrong"
	_, err := h.Exchange(context.Background(), "code", uuid.New())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "bad client" {
		t.Fatalf("unexpected error: %v", err)
	}
}
