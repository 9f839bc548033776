package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSignatureMalformed = errors.New("malformed webhook signature")
	ErrSignatureExpired   = errors.New("webhook signature outside tolerance")
	ErrSignatureMismatch  = errors.New("webhook signature mismatch")
)

// Sign returns the signature header value "t=<unix>,v1=<hex>". The MAC
// covers "<unix>.<payload>" so a captured delivery can't be replayed later.
func Sign(secret string, payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + mac(secret, ts, payload)
}

// Verify checks header against payload. tolerance <= 0 disables the age check.
func Verify(secret string, payload []byte, header string, now time.Time, tolerance time.Duration) error {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrSignatureMalformed
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrSignatureMalformed
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrSignatureMalformed
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return ErrSignatureExpired
		}
	}

	if !hmac.Equal([]byte(sig), []byte(mac(secret, ts, payload))) {
		return ErrSignatureMismatch
	}
	return nil
}

func mac(secret, ts string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(ts))
	h.Write([]byte{'.'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
