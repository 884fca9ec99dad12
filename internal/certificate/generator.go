package certificate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/crypto/blake2b"
)

// LocalGenerator builds numbers as PREFIX-YEAR-RANDOM and derives the
// verification code as a keyed BLAKE2b digest of the number.
type LocalGenerator struct {
	prefix string
	key    []byte
	now    func() time.Time
}

// NewLocalGenerator creates a LocalGenerator. The secret keys the
// verification code digest and is truncated to 64 bytes.
func NewLocalGenerator(prefix, secret string) *LocalGenerator {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	if prefix == "" {
		prefix = "CERT"
	}
	return &LocalGenerator{prefix: strings.ToUpper(prefix), key: key, now: time.Now}
}

func (g *LocalGenerator) Generate(_ context.Context, kind string) (Numbering, error) {
	random := make([]byte, 5)
	if _, err := rand.Read(random); err != nil {
		return Numbering{}, fmt.Errorf("read random: %w", err)
	}

	number := fmt.Sprintf("%s-%s%d-%s",
		g.prefix,
		kindTag(kind),
		g.now().Year(),
		strings.ToUpper(hex.EncodeToString(random)),
	)
	code, err := g.code(number)
	if err != nil {
		return Numbering{}, err
	}
	return Numbering{Number: number, VerificationCode: code}, nil
}

// code returns the first 12 hex digits of the keyed digest of number.
func (g *LocalGenerator) code(number string) (string, error) {
	h, err := blake2b.New256(g.key)
	if err != nil {
		return "", fmt.Errorf("init digest: %w", err)
	}
	h.Write([]byte(number))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)[:6])), nil
}

func kindTag(kind string) string {
	if kind == "" || kind == KindCompletion {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(kind)
	return strings.ToUpper(string(r))
}

// HTTPGenerator obtains numbers from an external numbering service.
type HTTPGenerator struct {
	client *resty.Client
}

// NewHTTPGenerator creates a generator calling POST {baseURL}/numbers.
func NewHTTPGenerator(baseURL string, timeout time.Duration) *HTTPGenerator {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json")
	return &HTTPGenerator{client: client}
}

func (g *HTTPGenerator) Generate(ctx context.Context, kind string) (Numbering, error) {
	var out Numbering
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"kind": kind}).
		SetResult(&out).
		Post("/numbers")
	if err != nil {
		return Numbering{}, fmt.Errorf("request certificate number: %w", err)
	}
	if resp.IsError() {
		return Numbering{}, fmt.Errorf("numbering service status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Number == "" || out.VerificationCode == "" {
		return Numbering{}, fmt.Errorf("numbering service returned an empty number or code")
	}
	return out, nil
}
