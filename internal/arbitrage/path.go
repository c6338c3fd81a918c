package arbitrage

import (
	"errors"
	"fmt"
	"strings"
)

// HopSeparator delimits tokens in a path summary
const HopSeparator = "→"

var ErrInvalidPath = errors.New("invalid path")

// Path is a parsed path summary such as "USDC→SOL→USDT→USDC"
type Path struct {
	Raw    string
	Tokens []string
}

// ParsePath splits a path summary into whitespace-trimmed tokens.
// Only the endpoints must be non-empty; inner segments are kept as given.
func ParsePath(raw string) (Path, error) {
	if strings.TrimSpace(raw) == "" {
		return Path{}, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}

	segments := strings.Split(raw, HopSeparator)
	tokens := make([]string, len(segments))
	for i, s := range segments {
		tokens[i] = strings.TrimSpace(s)
	}

	if tokens[0] == "" {
		return Path{}, fmt.Errorf("%w: missing start token in %q", ErrInvalidPath, raw)
	}
	if tokens[len(tokens)-1] == "" {
		return Path{}, fmt.Errorf("%w: missing end token in %q", ErrInvalidPath, raw)
	}

	return Path{Raw: raw, Tokens: tokens}, nil
}

// Hops is the number of separators, one less than the token count
func (p Path) Hops() int {
	return strings.Count(p.Raw, HopSeparator)
}

func (p Path) Start() string {
	return p.Tokens[0]
}

func (p Path) End() string {
	return p.Tokens[len(p.Tokens)-1]
}

// RoundTrip reports whether the route returns to the token it started from
func (p Path) RoundTrip() bool {
	return p.Start() == p.End()
}

func (p Path) String() string {
	return strings.Join(p.Tokens, " -> ")
}
