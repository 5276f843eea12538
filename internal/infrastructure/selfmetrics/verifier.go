package selfmetrics

import (
	"crypto/hmac"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/infrastructure/collector"
)

// SignatureVerifier is the inbound side of the v2 signing scheme: it checks
// the signature headers the collector's Signer produces. Timestamp skew and
// nonce reuse are both rejected.
type SignatureVerifier struct {
	secret string
	nonces port.Cache

	// memNonces backs nonce tracking when no shared cache is wired. Only
	// safe for a single instance.
	memNonces   map[string]time.Time
	memNoncesMu sync.Mutex

	now func() time.Time
}

func NewSignatureVerifier(secret string, nonces port.Cache) *SignatureVerifier {
	v := &SignatureVerifier{
		secret: secret,
		nonces: nonces,
		now:    time.Now,
	}
	if nonces == nil {
		v.memNonces = make(map[string]time.Time)
	}
	return v
}

// Verify checks the request's signature headers. Any failure means the
// request must be rejected with 401.
func (v *SignatureVerifier) Verify(r *http.Request) error {
	if version := r.Header.Get(collector.HeaderVersion); version != collector.SignatureVersion {
		return fmt.Errorf("unsupported signature version %q", version)
	}

	timestamp := r.Header.Get(collector.HeaderTimestamp)
	nonce := r.Header.Get(collector.HeaderNonce)
	signature := r.Header.Get(collector.HeaderSignature)
	if timestamp == "" || nonce == "" || signature == "" {
		return fmt.Errorf("missing signature headers")
	}

	if err := collector.ValidateTimestamp(timestamp, v.now()); err != nil {
		return err
	}

	expected := collector.BuildSignature(v.secret, timestamp, r.Method, collector.CanonicalPath(r.URL), nonce)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}

	fresh, err := v.markNonce(r, nonce)
	if err != nil {
		return fmt.Errorf("check nonce: %w", err)
	}
	if !fresh {
		return fmt.Errorf("nonce already used")
	}

	return nil
}

// markNonce records the nonce as seen, returning false on replay. Nonces
// only need to live as long as the timestamp skew window.
func (v *SignatureVerifier) markNonce(r *http.Request, nonce string) (bool, error) {
	if v.nonces != nil {
		return v.nonces.SetIfAbsent(r.Context(), "nonce:"+nonce, 1, collector.NonceTTL)
	}

	v.memNoncesMu.Lock()
	defer v.memNoncesMu.Unlock()

	now := v.now()
	for n, expires := range v.memNonces {
		if now.After(expires) {
			delete(v.memNonces, n)
		}
	}

	if _, seen := v.memNonces[nonce]; seen {
		return false, nil
	}
	v.memNonces[nonce] = now.Add(collector.NonceTTL)
	return true, nil
}
