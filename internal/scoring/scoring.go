package scoring

import (
	"github.com/aerae/accelerator/internal/store/model"
)

const (
	MaxScore = 100
	MinScore = 0

	// SecretPenalty is subtracted once per secret reported by the scanner.
	SecretPenalty = 15
)

// Penalty maps a normalized severity to the points it costs.
var Penalty = map[model.Severity]int{
	model.SeverityCritical: 50,
	model.SeverityHigh:     25,
	model.SeverityMedium:   10,
	model.SeverityLow:      0,
}

// SeverityPenalty returns the cost of a raw severity label. Labels are matched case and
// whitespace insensitively; anything not in Penalty costs 0.
func SeverityPenalty(severity string) int {
	return Penalty[model.NormalizeSeverity(severity)]
}

// Score computes the trust score. A negative secret count is treated as zero.
func Score(risks []model.Risk, secretCount int) int {
	return Breakdown(risks, secretCount).Score
}

// RiskPenalty is the cost of a single risk in a Result.
type RiskPenalty struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Penalty  int    `json:"penalty"`
}

// Result explains how a score was reached.
type Result struct {
	Score          int           `json:"score"`
	RiskPenalties  []RiskPenalty `json:"risk_penalties"`
	SecretCount    int           `json:"secret_count"`
	SecretsPenalty int           `json:"secrets_penalty"`
	TotalPenalty   int           `json:"total_penalty"`
}

func Breakdown(risks []model.Risk, secretCount int) Result {
	if secretCount < 0 {
		secretCount = 0
	}

	res := Result{
		RiskPenalties: make([]RiskPenalty, 0, len(risks)),
		SecretCount:   secretCount,
	}
	for _, r := range risks {
		p := SeverityPenalty(r.Severity)
		res.RiskPenalties = append(res.RiskPenalties, RiskPenalty{
			Category: r.Category,
			Severity: string(model.NormalizeSeverity(r.Severity)),
			Penalty:  p,
		})
		res.TotalPenalty += p
	}

	res.SecretsPenalty = SecretPenalty * secretCount
	res.TotalPenalty += res.SecretsPenalty

	res.Score = MaxScore - res.TotalPenalty
	if res.Score < MinScore {
		res.Score = MinScore
	}
	return res
}
