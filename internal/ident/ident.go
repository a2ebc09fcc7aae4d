// Package ident builds the human readable identifiers of products and orders.
package ident

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSKUAttempts bounds the number of candidates tried before giving up.
const MaxSKUAttempts = 10

var ErrSKUExhausted = errors.New("could not generate a unique sku")

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type SKUChecker interface {
	SKUExists(ctx context.Context, sku string) (bool, error)
}

// SKUGenerator produces codes of the form GEN-CAT-YYYYMMDD-XXXX.
type SKUGenerator struct {
	checker SKUChecker
	now     func() time.Time
	suffix  func() string
}

func NewSKUGenerator(checker SKUChecker) *SKUGenerator {
	return &SKUGenerator{
		checker: checker,
		now:     time.Now,
		suffix:  randomSuffix,
	}
}

func (g *SKUGenerator) Generate(ctx context.Context, gender, category string) (string, error) {
	prefix := fmt.Sprintf("%s-%s-%s", Code(gender), Code(category), g.now().UTC().Format("20060102"))

	for attempt := 0; attempt < MaxSKUAttempts; attempt++ {
		sku := prefix + "-" + g.suffix()
		exists, err := g.checker.SKUExists(ctx, sku)
		if err != nil {
			return "", fmt.Errorf("check sku %s: %w", sku, err)
		}
		if !exists {
			return sku, nil
		}
	}
	return "", ErrSKUExhausted
}

// Code folds s to ASCII, keeps its letters and returns the first three in
// upper case, padded with X.
func Code(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return b.String()
}

func randomSuffix() string {
	buf := make([]byte, 4)
	for i := range buf {
		buf[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(buf)
}

// NewOrderID returns ORD-<unix millis>-<1000..9999>.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), 1000+rand.Intn(9000))
}
