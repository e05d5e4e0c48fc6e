package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const maxNumberAttempts = 50

var errNumbersExhausted = errors.New("no free order number")

// NumberGenerator produces human-readable order numbers like KC-1A2B3C4D.
type NumberGenerator struct {
	prefix string
	random func() string
}

func NewNumberGenerator(prefix string) *NumberGenerator {
	return &NumberGenerator{prefix: prefix, random: randomHex8}
}

func randomHex8() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (g *NumberGenerator) Generate() string {
	return g.prefix + "-" + g.random()
}

// NextUnique regenerates until exists reports no persisted order holds the number.
func (g *NumberGenerator) NextUnique(ctx context.Context, exists func(ctx context.Context, number string) (bool, error)) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		n := g.Generate()
		taken, err := exists(ctx, n)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !taken {
			return n, nil
		}
	}
	return "", errNumbersExhausted
}
