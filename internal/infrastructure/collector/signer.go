package collector

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signature scheme v2: HMAC-SHA256 over timestamp|METHOD|canonical_path|nonce.
// The receiving endpoint rejects stale timestamps and reused nonces.
const (
	SignatureVersion = "v2"

	MaxSkewPast   = 300 * time.Second
	MaxSkewFuture = 30 * time.Second
	NonceTTL      = MaxSkewPast + MaxSkewFuture

	nonceBytes      = 16
	timestampLayout = "2006-01-02T15:04:05Z"

	HeaderTimestamp     = "X-Signature-Timestamp"
	HeaderSignature     = "X-Signature"
	HeaderNonce         = "X-Nonce"
	HeaderVersion       = "X-Signature-Version"
	HeaderCanonicalPath = "X-Canonical-Path"
	HeaderMethod        = "X-Method"
	HeaderNonceTTL      = "X-Nonce-TTL"
	HeaderProjectID     = "X-Project-Id"
)

// CanonicalPath normalizes a URL path for signing: forced leading slash,
// trailing slash stripped except for the root path. Query and fragment are
// never part of the signature.
func CanonicalPath(u *url.URL) string {
	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// BuildSignature computes the v2 signature, hex encoded with the sha256=
// prefix.
func BuildSignature(secret, timestamp, method, canonicalPath, nonce string) string {
	payload := strings.Join([]string{timestamp, method, canonicalPath, nonce}, "|")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Signer signs outbound collection requests with a per-project secret.
type Signer struct {
	secret    string
	projectID string

	// now and nonce are swappable for tests.
	now      func() time.Time
	newNonce func() (string, error)
}

func NewSigner(secret, projectID string) *Signer {
	return &Signer{
		secret:    secret,
		projectID: projectID,
		now:       time.Now,
		newNonce:  randomNonce,
	}
}

// Sign stamps the v2 signature headers onto the request.
func (s *Signer) Sign(req *http.Request) error {
	nonce, err := s.newNonce()
	if err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	timestamp := s.now().UTC().Format(timestampLayout)
	canonicalPath := CanonicalPath(req.URL)
	signature := BuildSignature(s.secret, timestamp, req.Method, canonicalPath, nonce)

	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderVersion, SignatureVersion)
	req.Header.Set(HeaderCanonicalPath, canonicalPath)
	req.Header.Set(HeaderMethod, req.Method)
	req.Header.Set(HeaderNonceTTL, strconv.Itoa(int(NonceTTL.Seconds())))
	if s.projectID != "" {
		req.Header.Set(HeaderProjectID, s.projectID)
	}

	return nil
}

// ValidateTimestamp rejects timestamps outside the allowed skew window.
func ValidateTimestamp(timestamp string, now time.Time) error {
	sent, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return fmt.Errorf("parse signature timestamp: %w", err)
	}

	delta := now.UTC().Sub(sent)
	if delta > MaxSkewPast {
		return fmt.Errorf("signature timestamp too old (%s)", delta)
	}
	if delta < -MaxSkewFuture {
		return fmt.Errorf("signature timestamp too far in the future (%s)", -delta)
	}
	return nil
}

func randomNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
