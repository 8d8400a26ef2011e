package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/metrics"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	otpLength      = 6
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 5
	otpMaxSends    = 5
)

var (
	ErrConsentRequired  = errors.New("both consents are required")
	ErrInvalidOrgNumber = errors.New("invalid organization number")
	ErrInvalidPhone     = errors.New("invalid phone number")
	ErrAlreadySigned    = errors.New("power of attorney is already signed")
	ErrOTPNotSent       = errors.New("no code has been sent")
	ErrOTPExpired       = errors.New("code has expired")
	ErrOTPInvalid       = errors.New("invalid code")
	ErrTooManyAttempts  = errors.New("too many attempts, request a new code")
	ErrTooManyCodes     = errors.New("too many codes requested")
)

// SMSSender delivers a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// TwilioSender sends SMS through the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.FromNumber,
	}
}

func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	defer metrics.TrackExternalCall("twilio", "create_message")(time.Now())

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.Sid != nil {
		config.Log().Info("SMS sent", zap.String("sid", *resp.Sid))
	}
	return nil
}

type POAService struct {
	db      *gorm.DB
	sms     SMSSender
	now     func() time.Time
	newCode func() (string, error)
}

func NewPOAService(db *gorm.DB, sms SMSSender) *POAService {
	return &POAService{db: db, sms: sms, now: time.Now, newCode: generateOTP}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

type POAInput struct {
	OrgNumber        string   `json:"orgNumber"`
	SalonName        string   `json:"salonName"`
	ContactName      string   `json:"contactName"`
	ContactEmail     string   `json:"contactEmail"`
	ContactPhone     string   `json:"contactPhone"`
	ConsentTransfer  bool     `json:"consentTransfer"`
	ConsentPrivacy   bool     `json:"consentPrivacy"`
	PreviousInsurers []string `json:"previousInsurers"`
}

// Create validates and stores an unsigned power of attorney. The salon is
// linked when the org number is known.
func (s *POAService) Create(ctx context.Context, in POAInput) (*models.PowerOfAttorney, error) {
	if !in.ConsentTransfer || !in.ConsentPrivacy {
		return nil, ErrConsentRequired
	}
	org := utils.NormalizeOrgNumber(in.OrgNumber)
	if !utils.ValidateOrgNumber(org) {
		return nil, ErrInvalidOrgNumber
	}
	phone := utils.CleanPhone(in.ContactPhone)
	if !utils.ValidatePhone(phone) {
		return nil, ErrInvalidPhone
	}
	if strings.TrimSpace(in.SalonName) == "" || strings.TrimSpace(in.ContactName) == "" {
		return nil, errors.New("salon name and contact name are required")
	}

	insurers := in.PreviousInsurers
	if insurers == nil {
		insurers = []string{}
	}
	raw, err := json.Marshal(insurers)
	if err != nil {
		return nil, err
	}

	poa := models.PowerOfAttorney{
		OrgNumber:        org,
		SalonName:        strings.TrimSpace(in.SalonName),
		ContactName:      strings.TrimSpace(in.ContactName),
		ContactEmail:     strings.TrimSpace(in.ContactEmail),
		ContactPhone:     phone,
		ConsentTransfer:  true,
		ConsentPrivacy:   true,
		PreviousInsurers: datatypes.JSON(raw),
	}

	db := s.db.WithContext(ctx)
	var salon models.Salon
	if err := db.Select("id").First(&salon, "org_number = ?", org).Error; err == nil {
		poa.SalonID = &salon.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := db.Create(&poa).Error; err != nil {
		return nil, err
	}
	return &poa, nil
}

func (s *POAService) load(db *gorm.DB, id uuid.UUID) (*models.PowerOfAttorney, error) {
	var poa models.PowerOfAttorney
	if err := db.First(&poa, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if poa.Signed {
		return nil, ErrAlreadySigned
	}
	return &poa, nil
}

// SendOTP issues a fresh code. Only its bcrypt hash is stored and the
// attempt counter starts over. At most otpMaxSends codes go out per power
// of attorney.
func (s *POAService) SendOTP(ctx context.Context, id uuid.UUID) (time.Time, error) {
	db := s.db.WithContext(ctx)
	poa, err := s.load(db, id)
	if err != nil {
		return time.Time{}, err
	}
	if poa.OTPSends >= otpMaxSends {
		return time.Time{}, ErrTooManyCodes
	}

	code, err := s.newCode()
	if err != nil {
		return time.Time{}, err
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return time.Time{}, err
	}
	expires := s.now().Add(otpTTL)

	res := db.Model(&models.PowerOfAttorney{}).
		Where("id = ? AND signed = ? AND otp_sends < ?", poa.ID, false, otpMaxSends).
		Updates(map[string]interface{}{
			"otp_hash":       hash,
			"otp_expires_at": expires,
			"otp_attempts":   0,
			"otp_sends":      gorm.Expr("otp_sends + ?", 1),
		})
	if res.Error != nil {
		return time.Time{}, res.Error
	}
	if res.RowsAffected == 0 {
		return time.Time{}, ErrTooManyCodes
	}

	body := fmt.Sprintf("Din kode for signering av fullmakt er %s. Koden er gyldig i %d minutter.", code, int(otpTTL.Minutes()))
	if err := s.sms.SendSMS(ctx, poa.ContactPhone, body); err != nil {
		return time.Time{}, err
	}
	return expires, nil
}

// VerifyOTP signs the power of attorney when code matches. A wrong code
// counts as an attempt; after five the code is dead.
func (s *POAService) VerifyOTP(ctx context.Context, id uuid.UUID, code, ip, userAgent string) (*models.PowerOfAttorney, error) {
	db := s.db.WithContext(ctx)
	poa, err := s.load(db, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	switch {
	case poa.OTPHash == "" || poa.OTPExpiresAt == nil:
		return nil, ErrOTPNotSent
	case poa.OTPAttempts >= otpMaxAttempts:
		metrics.OTPVerificationsTotal.WithLabelValues("locked").Inc()
		return nil, ErrTooManyAttempts
	case now.After(*poa.OTPExpiresAt):
		metrics.OTPVerificationsTotal.WithLabelValues("expired").Inc()
		return nil, ErrOTPExpired
	}

	// Claim the attempt before comparing; the guard caps parallel guesses.
	claim := db.Model(&models.PowerOfAttorney{}).
		Where("id = ? AND otp_hash = ? AND signed = ? AND otp_attempts < ?", poa.ID, poa.OTPHash, false, otpMaxAttempts).
		Update("otp_attempts", gorm.Expr("otp_attempts + ?", 1))
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		metrics.OTPVerificationsTotal.WithLabelValues("locked").Inc()
		return nil, ErrTooManyAttempts
	}

	if !utils.CheckPasswordHash(strings.TrimSpace(code), poa.OTPHash) {
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrOTPInvalid
	}

	poa.Signed = true
	poa.SignedAt = &now
	poa.SignedIP = ip
	poa.SignedUserAgent = userAgent
	poa.OTPHash = ""
	poa.OTPExpiresAt = nil
	signed := db.Model(poa).Where("signed = ?", false).
		Select("signed", "signed_at", "signed_ip", "signed_user_agent", "otp_hash", "otp_expires_at").
		Updates(poa)
	if signed.Error != nil {
		return nil, signed.Error
	}
	if signed.RowsAffected == 0 {
		return nil, ErrAlreadySigned
	}
	metrics.OTPVerificationsTotal.WithLabelValues("signed").Inc()
	return poa, nil
}
