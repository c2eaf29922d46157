package opa

import (
	"context"
	"fmt"
)

// UnavailableReason is the only deny reason of a decision taken without reaching the policy engine.
const UnavailableReason = "OPA server unavailable - policy not evaluated"

// Decision is the verdict of the ethical gates policy.
type Decision struct {
	Allow       bool     `json:"allow"`
	DenyReasons []string `json:"deny_reasons"`
	// Unavailable is set when the policy engine could not be reached and the decision is the
	// safe default.
	Unavailable bool `json:"opa_unavailable,omitempty"`
}

func (d *Decision) String() string {
	if d.Allow {
		return "allow"
	}
	return "deny"
}

// Gatekeeper evaluates an assessment payload against the ethical gates policy.
type Gatekeeper interface {
	Evaluate(ctx context.Context, payload map[string]any) (*Decision, error)
}

func unavailableDecision() *Decision {
	return &Decision{
		Allow:       false,
		DenyReasons: []string{UnavailableReason},
		Unavailable: true,
	}
}

// decisionFromResult reads allow and deny_reasons out of a policy result document. Missing
// fields default to a denial without reasons.
func decisionFromResult(result map[string]any) (*Decision, error) {
	d := &Decision{DenyReasons: []string{}}
	if result == nil {
		return d, nil
	}

	if v, ok := result["allow"]; ok {
		allow, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("unexpected type %T for allow", v)
		}
		d.Allow = allow
	}

	if v, ok := result["deny_reasons"]; ok && v != nil {
		reasons, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected type %T for deny_reasons", v)
		}
		for _, r := range reasons {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected deny reason type %T", r)
			}
			d.DenyReasons = append(d.DenyReasons, s)
		}
	}
	return d, nil
}
