package dispatch

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
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"aircon-schedule-backend/config"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/model"
)

// CredentialSource resolves the stored vendor token for a user. The store
// layer satisfies this.
type CredentialSource interface {
	GetCredential(ctx context.Context, userID string) (*model.Credential, error)
}

// VendorClient is the HTTP implementation of Dispatcher against the
// campus prepaid AC API.
type VendorClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	creds   CredentialSource
}

// NewVendorClient builds a client from config, mirroring the upstream
// request settings (proxy, timeout) the service is deployed with.
func NewVendorClient(cfg *config.VendorConfig, creds CredentialSource) *VendorClient {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warnf("invalid proxy URL %q: %v; vendor client will not use a proxy", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &VendorClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		creds:   creds,
	}
}

type togglePayload struct {
	Status int    `json:"status"`
	Timer  string `json:"timer,omitempty"`
}

// SetPower implements Dispatcher.
func (v *VendorClient) SetPower(ctx context.Context, userID string, on bool, timerAt *time.Time) error {
	token, err := v.resolveToken(ctx, userID)
	if err != nil {
		return err
	}

	toggle := togglePayload{}
	if on {
		toggle.Status = 1
		if timerAt != nil && timerAt.After(time.Now()) {
			toggle.Timer = timerAt.UTC().Format(time.RFC3339)
		}
	}
	body, err := json.Marshal(map[string]togglePayload{"toggle": toggle})
	if err != nil {
		return fmt.Errorf("marshal toggle payload: %w", err)
	}

	status, raw, err := v.call(ctx, token, http.MethodPost, "/prepaid/toggle-status", body)
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		return nil
	}
	return v.classify(status, raw, on)
}

// GetPower implements Dispatcher.
func (v *VendorClient) GetPower(ctx context.Context, userID string) (PowerState, error) {
	raw, err := v.Proxy(ctx, userID, "/prepaid/ac-status")
	if err != nil {
		return PowerUnknown, err
	}
	for _, path := range []string{"ac_data.status", "status", "data.status"} {
		if field := gjson.GetBytes(raw, path); field.Exists() {
			if field.Int() == 1 {
				return PowerOn, nil
			}
			return PowerOff, nil
		}
	}
	return PowerUnknown, nil
}

// Proxy performs an authenticated GET against the vendor API and returns
// the normalized response body. The API layer uses it for the thin
// status/balance passthrough endpoints.
func (v *VendorClient) Proxy(ctx context.Context, userID, path string) ([]byte, error) {
	token, err := v.resolveToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	status, raw, err := v.call(ctx, token, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status >= 200 && status < 300 {
		// Unwrap the data envelope when present.
		if data := gjson.GetBytes(raw, "data"); data.Exists() {
			return []byte(data.Raw), nil
		}
		return raw, nil
	}
	return nil, v.classify(status, raw, false)
}

func (v *VendorClient) resolveToken(ctx context.Context, userID string) (string, error) {
	cred, err := v.creds.GetCredential(ctx, userID)
	if err != nil || cred == nil || cred.Token == "" {
		return "", fmt.Errorf("user %s: %w", userID, ErrNoCredential)
	}
	return cred.Token, nil
}

// call issues one vendor request and returns the normalized status plus
// the raw body. The vendor often answers HTTP 200 with an application
// code inside meta.code, so the meta code wins when it is present.
func (v *VendorClient) call(ctx context.Context, token, method, path string, body []byte) (int, []byte, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build vendor request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("vendor request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read vendor response: %w", err)
	}

	return normalizeStatus(resp.StatusCode, raw), raw, nil
}

// normalizeStatus folds the vendor's meta.code convention (e.g. 4033)
// into an HTTP-ish status and remaps auth failures to 401.
func normalizeStatus(httpStatus int, raw []byte) int {
	status := httpStatus
	metaCode := gjson.GetBytes(raw, "meta.code")
	original := int64(-1)
	if metaCode.Exists() {
		original = metaCode.Int()
		code := original
		for code >= 1000 {
			code /= 10
		}
		if code >= 100 && code <= 599 {
			status = int(code)
		}
	}

	msg := strings.ToLower(gjson.GetBytes(raw, "meta.message").String())
	switch {
	case strings.Contains(msg, "invalid bearer token"),
		strings.Contains(msg, "invalid token"),
		strings.Contains(msg, "token expired"),
		strings.Contains(msg, "expired token"),
		strings.Contains(msg, "unauthorized"):
		return http.StatusUnauthorized
	}
	switch original {
	case 401, 4010, 4011, 4032:
		return http.StatusUnauthorized
	}
	return status
}

// classify turns a non-2xx normalized vendor response into one of the
// package's failure reasons.
func (v *VendorClient) classify(status int, raw []byte, requestedOn bool) error {
	msg := gjson.GetBytes(raw, "meta.message").String()
	if msg == "" {
		msg = gjson.GetBytes(raw, "errorMessage").String()
	}
	lower := strings.ToLower(msg)

	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrCredential, firstNonEmpty(msg, "unauthorized"))
	}
	if strings.Contains(lower, "already") && strings.Contains(lower, "turned") &&
		(strings.Contains(lower, "aircon") || strings.Contains(lower, "air conditioner")) {
		want := "off"
		if requestedOn {
			want = "on"
		}
		return fmt.Errorf("%w: requested %s", ErrAlreadyInState, want)
	}
	return fmt.Errorf("vendor call failed with status %d: %s", status, firstNonEmpty(msg, "request failed"))
}

func firstNonEmpty(vals ...string) string {
	for _, s := range vals {
		if s != "" {
			return s
		}
	}
	return ""
}

// IsConflict reports whether err is the vendor's already-on/off answer.
func IsConflict(err error) bool { return errors.Is(err, ErrAlreadyInState) }

// IsCredential reports whether err is a missing or rejected credential.
func IsCredential(err error) bool {
	return errors.Is(err, ErrNoCredential) || errors.Is(err, ErrCredential)
}
