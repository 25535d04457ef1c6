package ranking

import (
	"fmt"
	"strings"
)

// Policy selects how a student's weekly activity is aggregated and ordered.
type Policy int

const (
	// Average ranks by mean quiz score, earlier last completion first on ties.
	Average Policy = iota
	// Points ranks by number of completed lessons, one point each.
	Points
)

// DefaultPolicy is used when callers do not name one.
const DefaultPolicy = Average

func (p Policy) String() string {
	switch p {
	case Average:
		return "average"
	case Points:
		return "points"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// MarshalText encodes the policy by name.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("ranking.policy: %w: %s", ErrInvalidArgument, p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a policy name; see ParsePolicy.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Policy) valid() bool { return p == Average || p == Points }

// ParsePolicy accepts "average" or "points" (case-insensitive). An empty
// string yields DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPolicy, nil
	case "average":
		return Average, nil
	case "points":
		return Points, nil
	default:
		return 0, fmt.Errorf("ranking.parse_policy: %w: unknown policy %q", ErrInvalidArgument, s)
	}
}
