package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"salonportal-backend/models"
)

type fakeSMS struct {
	to, body string
	sent     int
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.to, f.body = to, body
	f.sent++
	return nil
}

func newPOAFixture(t *testing.T) (*POAService, *fakeSMS, *time.Time) {
	t.Helper()
	db := newTestDB(t)
	sms := &fakeSMS{}
	s := NewPOAService(db, sms)
	now := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.newCode = func() (string, error) { return "123456", nil }
	return s, sms, &now
}

func validPOAInput() POAInput {
	return POAInput{
		OrgNumber:        "923 609 016",
		SalonName:        "Klipp & Krøll",
		ContactName:      "Kari Nordmann",
		ContactPhone:     "+47 912 34 567",
		ConsentTransfer:  true,
		ConsentPrivacy:   true,
		PreviousInsurers: []string{"If", "Gjensidige"},
	}
}

func TestPOACreateValidation(t *testing.T) {
	s, _, _ := newPOAFixture(t)
	ctx := context.Background()

	noConsent := validPOAInput()
	noConsent.ConsentPrivacy = false
	if _, err := s.Create(ctx, noConsent); !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired got %v", err)
	}
	badOrg := validPOAInput()
	badOrg.OrgNumber = "923609017"
	if _, err := s.Create(ctx, badOrg); !errors.Is(err, ErrInvalidOrgNumber) {
		t.Fatalf("expected ErrInvalidOrgNumber got %v", err)
	}
	badPhone := validPOAInput()
	badPhone.ContactPhone = "12"
	if _, err := s.Create(ctx, badPhone); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone got %v", err)
	}
}

func TestPOALinksKnownSalon(t *testing.T) {
	s, _, _ := newPOAFixture(t)
	salon := &models.Salon{Name: "Klipp & Krøll", OrgNumber: "923609016", IsActive: true}
	mustCreate(t, s.db, salon)

	poa, err := s.Create(context.Background(), validPOAInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if poa.SalonID == nil || *poa.SalonID != salon.ID {
		t.Fatalf("salon not linked: %v", poa.SalonID)
	}
	if poa.OrgNumber != "923609016" {
		t.Fatalf("org number not normalized: %q", poa.OrgNumber)
	}
}

func TestPOASignWithOTP(t *testing.T) {
	s, sms, now := newPOAFixture(t)
	ctx := context.Background()

	poa, err := s.Create(ctx, validPOAInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.VerifyOTP(ctx, poa.ID, "123456", "", ""); !errors.Is(err, ErrOTPNotSent) {
		t.Fatalf("expected ErrOTPNotSent got %v", err)
	}

	expires, err := s.SendOTP(ctx, poa.ID)
	if err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if !expires.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expiry: %v", expires)
	}
	if sms.sent != 1 || !strings.Contains(sms.body, "123456") {
		t.Fatalf("sms not sent with code: %+v", sms)
	}

	var stored models.PowerOfAttorney
	s.db.First(&stored, "id = ?", poa.ID)
	if stored.OTPHash == "" || stored.OTPHash == "123456" {
		t.Fatalf("code must be stored hashed")
	}

	if _, err := s.VerifyOTP(ctx, poa.ID, "000000", "", ""); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid got %v", err)
	}
	signed, err := s.VerifyOTP(ctx, poa.ID, " 123456 ", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !signed.Signed || signed.SignedIP != "10.0.0.1" || signed.SignedAt == nil {
		t.Fatalf("not signed: %+v", signed)
	}
	if _, err := s.SendOTP(ctx, poa.ID); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned got %v", err)
	}
}

func TestPOAOTPExpiryAndLockout(t *testing.T) {
	s, _, _ := newPOAFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

	poa, err := s.Create(ctx, validPOAInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.SendOTP(ctx, poa.ID); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.VerifyOTP(ctx, poa.ID, "999999", "", ""); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("attempt %d: expected ErrOTPInvalid got %v", i, err)
		}
	}
	if _, err := s.VerifyOTP(ctx, poa.ID, "123456", "", ""); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts got %v", err)
	}

	// A new code resets the counter.
	if _, err := s.SendOTP(ctx, poa.ID); err != nil {
		t.Fatalf("resend: %v", err)
	}
	s.now = func() time.Time { return base.Add(11 * time.Minute) }
	if _, err := s.VerifyOTP(ctx, poa.ID, "123456", "", ""); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired got %v", err)
	}
}

func TestPOAParallelGuessesStayWithinLimit(t *testing.T) {
	s, _, _ := newPOAFixture(t)
	ctx := context.Background()
	poa, err := s.Create(ctx, validPOAInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.SendOTP(ctx, poa.ID); err != nil {
		t.Fatalf("send otp: %v", err)
	}

	const guesses = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
		locked  int
	)
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.VerifyOTP(ctx, poa.ID, "999999", "", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrOTPInvalid):
				invalid++
			case errors.Is(err, ErrTooManyAttempts):
				locked++
			default:
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}
	wg.Wait()

	if invalid != 5 || locked != guesses-5 {
		t.Fatalf("expected 5 compared guesses got %d (locked %d)", invalid, locked)
	}
	var stored models.PowerOfAttorney
	s.db.First(&stored, "id = ?", poa.ID)
	if stored.OTPAttempts != 5 {
		t.Fatalf("attempts: %d", stored.OTPAttempts)
	}
	if _, err := s.VerifyOTP(ctx, poa.ID, "123456", "", ""); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("correct code after lockout: %v", err)
	}
}

func TestPOAResendLimit(t *testing.T) {
	s, sms, _ := newPOAFixture(t)
	ctx := context.Background()
	poa, err := s.Create(ctx, validPOAInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.SendOTP(ctx, poa.ID); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
	}
	if _, err := s.SendOTP(ctx, poa.ID); !errors.Is(err, ErrTooManyCodes) {
		t.Fatalf("expected ErrTooManyCodes got %v", err)
	}
	if sms.sent != 5 {
		t.Fatalf("sms sent %d times", sms.sent)
	}

	// The last code still works.
	if _, err := s.VerifyOTP(ctx, poa.ID, "123456", "", ""); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
