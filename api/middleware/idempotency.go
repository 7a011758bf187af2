package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/kitchenledger-backend/api/responses"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/kitchenledger-backend/pkg/redis"
)

const (
	// DefaultIdempotencyTTL covers document creation.
	DefaultIdempotencyTTL = 24 * time.Hour
	// CriticalIdempotencyTTL covers calls that move goods.
	CriticalIdempotencyTTL = 7 * 24 * time.Hour

	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxKeyLen         = 255
	inFlightTTL       = 2 * time.Minute
	inFlight          = "pending"
)

// storedResponse is what a completed request leaves behind for replays.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency makes a mutating route safe to retry. The first request with a
// given Idempotency-Key claims it with SETNX and runs; later requests with
// the same key and body get the stored response, concurrent ones get a
// conflict. 5xx responses release the key. A nil store disables the check.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.serve(w, r, next); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// serve returns an error only when nothing has been written yet.
func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case clientKey == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	case len(clientKey) > maxKeyLen:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "Idempotency-Key longer than %d characters", maxKeyLen)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	fingerprint := fingerprintOf(body)

	ctx := r.Context()
	key := g.store.IdempotencyKey(scopeOf(r), clientKey)
	claimed, err := g.store.SetNX(ctx, key, inFlight, inFlightTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	if !claimed {
		return g.replay(w, r, key, fingerprint)
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	g.remember(context.WithoutCancel(ctx), key, fingerprint, capture)
	return nil
}

func (g *idempotencyGuard) remember(ctx context.Context, key, fingerprint string, capture *responseCapture) {
	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		g.logIfErr(ctx, "release idempotency key", g.store.Del(ctx, key))
		return
	}
	payload, err := json.Marshal(storedResponse{
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		Fingerprint: fingerprint,
	})
	if err != nil {
		g.logIfErr(ctx, "marshal idempotency record", err)
		return
	}
	g.logIfErr(ctx, "persist idempotency record", g.store.Set(ctx, key, string(payload), g.ttl))
}

func (g *idempotencyGuard) replay(w http.ResponseWriter, r *http.Request, key, fingerprint string) error {
	raw, err := g.store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || raw == inFlight {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	if stored.Fingerprint != fingerprint {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
	return nil
}

func (g *idempotencyGuard) logIfErr(ctx context.Context, msg string, err error) {
	if g.logg != nil && err != nil {
		g.logg.Error(ctx, msg, err)
	}
}

// scopeOf keys records per caller and endpoint so two users can reuse the
// same client-generated key.
func scopeOf(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{UserIDFromContext(ctx), OrganizationIDFromContext(ctx), r.Method, r.URL.Path}, "|")
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
