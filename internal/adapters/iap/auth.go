package iap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
)

// TokenStore keeps portal tokens per company and channel.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Channel identifies which portal credentials a token belongs to.
type Channel string

const (
	// ChannelEDI is the e-invoice portal, also used for generation by IRN.
	ChannelEDI Channel = "edi"
	// ChannelEwaybill is the E-Way Bill portal used for direct generation.
	ChannelEwaybill Channel = "ewaybill"
)

const (
	ediAuthPath      = "/iap/l10n_in_edi/1/authenticate"
	ewaybillAuthPath = "/iap/l10n_in_edi_ewaybill/1/authenticate"
)

func (c Channel) authPath() string {
	if c == ChannelEwaybill {
		return ewaybillAuthPath
	}
	return ediAuthPath
}

func (c Channel) credentials(company ewaybill.Company) (username, password string) {
	if c == ChannelEwaybill {
		return company.EwaybillUsername, company.EwaybillPassword
	}
	return company.EDIUsername, company.EDIPassword
}

// ErrMissingCredentials is returned when a company has no username/password
// for the channel.
var ErrMissingCredentials = errors.New("portal credentials are not configured")

// AuthManager handles portal authentication with token caching.
type AuthManager struct {
	channel   Channel
	connector *Connector
	store     TokenStore
	tokenTTL  time.Duration
	log       *slog.Logger
	mu        sync.Mutex // Serializes refreshes so a company authenticates once at a time
}

// NewAuthManager creates an authentication manager for one channel.
func NewAuthManager(channel Channel, connector *Connector, store TokenStore, tokenTTL time.Duration, log *slog.Logger) *AuthManager {
	return &AuthManager{
		channel:   channel,
		connector: connector,
		store:     store,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Username returns the portal username of company for this channel.
func (a *AuthManager) Username(company ewaybill.Company) string {
	username, _ := a.channel.credentials(company)
	return username
}

// Token returns a valid token for company, authenticating when the cached one
// is missing or expired. It returns "" with a nil error when the company has
// no credentials for this channel.
func (a *AuthManager) Token(ctx context.Context, company ewaybill.Company) (string, error) {
	username, password := a.channel.credentials(company)
	if username == "" {
		return "", nil
	}
	key := a.key(company)

	if token, ok, err := a.store.Get(ctx, key); err != nil {
		a.log.Warn("Token store read failed", "channel", a.channel, "company_id", company.ID, "error", err)
	} else if ok {
		return token, nil
	}

	if password == "" {
		return "", nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring lock (another goroutine might have refreshed)
	if token, ok, err := a.store.Get(ctx, key); err == nil && ok {
		return token, nil
	}

	token, err := a.authenticate(ctx, company)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate forces a new token for company regardless of the cached one.
func (a *AuthManager) Authenticate(ctx context.Context, company ewaybill.Company) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Delete(ctx, a.key(company)); err != nil {
		a.log.Warn("Token store delete failed", "channel", a.channel, "company_id", company.ID, "error", err)
	}
	_, err := a.authenticate(ctx, company)
	return err
}

// authenticate performs the actual authentication request. Callers hold a.mu.
func (a *AuthManager) authenticate(ctx context.Context, company ewaybill.Company) (string, error) {
	username, password := a.channel.credentials(company)
	if username == "" || password == "" {
		return "", ErrMissingCredentials
	}

	resp := a.connector.Connect(ctx, company.GSTIN, username, a.channel.authPath(), map[string]any{
		"password": password,
	})
	if len(resp.Error) > 0 {
		err := &ewaybill.Error{Kind: ewaybill.KindCredential, Entries: resp.Error}
		a.log.Error("Portal authentication failed", "channel", a.channel, "company_id", company.ID, "codes", err.Codes())
		return "", fmt.Errorf("%s authentication failed: %w", a.channel, err)
	}

	token := resp.DataString("AuthToken")
	if token == "" {
		return "", fmt.Errorf("%s authentication failed: empty token in response", a.channel)
	}

	ttl := a.tokenTTL
	if expiry, err := ewaybill.IndianTimeToUTC(resp.DataString("TokenExpiry"), ewaybill.IRNDateLayout); err == nil && expiry != nil {
		if remaining := time.Until(*expiry); remaining > 0 {
			ttl = remaining
		}
	}

	if err := a.store.Set(ctx, a.key(company), token, ttl); err != nil {
		a.log.Warn("Token store write failed", "channel", a.channel, "company_id", company.ID, "error", err)
	}
	a.log.Debug("Portal token refreshed and cached", "channel", a.channel, "company_id", company.ID, "ttl", ttl)
	return token, nil
}

func (a *AuthManager) key(company ewaybill.Company) string {
	return fmt.Sprintf("l10n_in:%s:%d", a.channel, company.ID)
}
