package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirasaad/presale/pkg/domain"
)

// SignatureHeader is the header carrying `t=<unix>,v1=<hex>[,v1=<hex>...]`.
const SignatureHeader = "Signature"

// ComputeSignature returns the hex HMAC-SHA256 of "{t}.{payload}" under secret.
func ComputeSignature(t time.Time, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(t.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignHeader builds a signature header value for payload at t.
func SignHeader(t time.Time, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), ComputeSignature(t, payload, secret))
}

// VerifySignature checks header against payload. Any listed v1 value may
// match; every comparison is constant-time. A zero tolerance disables the
// timestamp age check.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return fmt.Errorf("%w: missing signature header", domain.ErrInvalidSignature)
	}
	var (
		ts         int64
		haveTS     bool
		signatures [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: malformed timestamp", domain.ErrInvalidSignature)
			}
			ts, haveTS = parsed, true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if !haveTS || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed signature header", domain.ErrInvalidSignature)
	}

	signedAt := time.Unix(ts, 0)
	if tolerance > 0 && now.Sub(signedAt) > tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
	}

	expected, _ := hex.DecodeString(ComputeSignature(signedAt, payload, secret))
	matched := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			matched = true
		}
	}
	if !matched {
		return domain.ErrInvalidSignature
	}
	return nil
}

// HeaderValue looks a header up case-insensitively.
func HeaderValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
