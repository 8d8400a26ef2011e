package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestValidateOrgNumber(t *testing.T) {
	cases := map[string]bool{
		"923609016":   true,
		"923 609 016": true,
		"974760673":   true,
		"923609017":   false,
		"12345678":    false,
		"92360901a":   false,
		"":            false,
	}
	for in, want := range cases {
		if got := ValidateOrgNumber(in); got != want {
			t.Fatalf("ValidateOrgNumber(%q): expected %v got %v", in, want, got)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	for _, ok := range []string{"+47 912 34 567", "91234567", "+4791234567", "(+47) 912-34-567"} {
		if !ValidatePhone(ok) {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"12", "0047912", "abc", ""} {
		if ValidatePhone(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Nye priser på Wella":   "nye-priser-pa-wella",
		"  Sommerfest 2025!  ":  "sommerfest-2025",
		"Ærlig talt, Østlandet": "aerlig-talt-ostlandet",
	}
	for in, want := range cases {
		got := Slugify(in)
		if got != want {
			t.Fatalf("Slugify(%q): expected %q got %q", in, want, got)
		}
		if !ValidateSlug(got) {
			t.Fatalf("Slugify(%q) produced invalid slug %q", in, got)
		}
	}
	if ValidateSlug("Not-Valid") || ValidateSlug("a--b") || ValidateSlug("-a") {
		t.Fatalf("ValidateSlug accepted an invalid slug")
	}
}

func TestPeriods(t *testing.T) {
	p, err := ParsePeriod("2025-03")
	if err != nil || p.Year() != 2025 || p.Month() != time.March {
		t.Fatalf("ParsePeriod: %v %v", p, err)
	}
	if _, err := ParsePeriod("2025-3"); err == nil {
		t.Fatalf("expected error for single digit month")
	}
	if got := FormatPeriod(2025, time.January); got != "2025-01" {
		t.Fatalf("FormatPeriod: %s", got)
	}
	start := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 8, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(start, end); got != 7 {
		t.Fatalf("DaysBetween: %d", got)
	}
	d := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	if got := FormatNorwegianDate(&d); got != "24.12.2025" {
		t.Fatalf("FormatNorwegianDate: %s", got)
	}
	if FormatNorwegianDate(nil) != "" {
		t.Fatalf("nil date should render empty")
	}
}

func TestWriteCSV(t *testing.T) {
	data, err := WriteCSV([]string{"Navn", "Beløp"}, [][]string{{"Kari", FormatAmount(1234.5)}})
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}
	want := "\ufeffNavn;Beløp\nKari;1234,50\n"
	if string(data) != want {
		t.Fatalf("unexpected csv %q", data)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ConfigureJWT("test-secret", 1)
	token, err := GenerateToken("user-1", Claims{Role: "salon_owner", SalonID: "salon-1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "salon_owner" || claims.SalonID != "salon-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	ConfigureJWT("other-secret", 1)
	if _, err := ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}
}

func TestAuthMiddlewareAndRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ConfigureJWT("test-secret", 1)

	stored := map[string]*Principal{
		"u-admin":   {Role: "admin", Active: true},
		"u-stylist": {Role: "stylist", SalonID: "salon-1", Active: true},
		"u-demoted": {Role: "stylist", SalonID: "salon-2", Active: true},
		"u-gone":    {Role: "admin", Active: false},
	}
	load := func(c *gin.Context, userID string) (*Principal, error) {
		if userID == "u-broken" {
			return nil, errors.New("connection refused")
		}
		p, ok := stored[userID]
		if !ok {
			return nil, ErrUnknownPrincipal
		}
		return p, nil
	}

	r := gin.New()
	r.GET("/admin", AuthMiddleware(load), RequireRoles("admin", "superadmin"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userId"))
	})
	r.GET("/scope", AuthMiddleware(load), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("role")+"@"+c.GetString("salonId"))
	})

	do := func(path string, setup func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		setup(req)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	bearer := func(userID, role string) func(*http.Request) {
		token, _ := GenerateToken(userID, Claims{Role: role, SalonID: "salon-1"})
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}

	if w := do("/admin", func(*http.Request) {}); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", w.Code)
	}
	if w := do("/admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
	if w := do("/admin", bearer("u-stylist", "stylist")); w.Code != http.StatusForbidden {
		t.Fatalf("stylist: %d", w.Code)
	}

	admin, _ := GenerateToken("u-admin", Claims{Role: "admin"})
	w := do("/admin", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: admin}) })
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "u-admin") {
		t.Fatalf("admin via cookie: %d %s", w.Code, w.Body.String())
	}

	// Stored state wins over what the token was issued with.
	if w := do("/admin", bearer("u-demoted", "admin")); w.Code != http.StatusForbidden {
		t.Fatalf("demoted admin: %d", w.Code)
	}
	if w := do("/scope", bearer("u-demoted", "admin")); w.Body.String() != "stylist@salon-2" {
		t.Fatalf("scope from token instead of stored user: %s", w.Body.String())
	}
	if w := do("/admin", bearer("u-gone", "admin")); w.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user: %d", w.Code)
	}
	if w := do("/admin", bearer("u-unknown", "admin")); w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", w.Code)
	}
	if w := do("/admin", bearer("u-broken", "admin")); w.Code != http.StatusInternalServerError {
		t.Fatalf("loader failure: %d", w.Code)
	}
}

func TestHashPassword(t *testing.T) {
	BcryptCost = 4
	hash, err := HashPassword("hemmelig")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("hemmelig", hash) || CheckPasswordHash("feil", hash) {
		t.Fatalf("password check mismatch")
	}
}
