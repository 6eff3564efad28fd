package service

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	defaultMaxDistance = 4
	edgeChars          = 4 // hex digits compared at each end
)

// RecipientLister lists recipients of past confirmed transfers.
type RecipientLister interface {
	Recipients(ctx context.Context) ([]string, error)
}

// LookalikeGuard spots address poisoning: a recipient that shares its first
// and last digits with, or sits a few edits away from, an address the user
// already paid, without being that address.
type LookalikeGuard struct {
	Transfers   RecipientLister
	MaxDistance int
}

// Lookalike returns the closest known recipient that resembles recipient.
// An exact match with a known recipient is never reported.
func (g *LookalikeGuard) Lookalike(ctx context.Context, recipient string) (string, bool, error) {
	known, err := g.Transfers.Recipients(ctx)
	if err != nil {
		return "", false, err
	}
	maxDist := g.MaxDistance
	if maxDist <= 0 {
		maxDist = defaultMaxDistance
	}
	target := normalizeAddress(recipient)
	best, bestDist := "", -1
	for _, k := range known {
		cand := normalizeAddress(k)
		if cand == target {
			return "", false, nil
		}
		dist := levenshtein.ComputeDistance(target, cand)
		if dist > maxDist && !sameEdges(target, cand) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = k, dist
		}
	}
	return best, bestDist >= 0, nil
}

func normalizeAddress(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
}

func sameEdges(a, b string) bool {
	if len(a) < 2*edgeChars || len(b) < 2*edgeChars {
		return false
	}
	return a[:edgeChars] == b[:edgeChars] && a[len(a)-edgeChars:] == b[len(b)-edgeChars:]
}
