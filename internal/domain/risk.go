package domain

// RiskLevel classifies a risk score into one of four bands.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
	RiskLevelUnknown  RiskLevel = "UNKNOWN"
)

// Risk level band boundaries, inclusive lower / exclusive upper.
const (
	riskScoreMedium   = 500
	riskScoreHigh     = 750
	riskScoreCritical = 1000
)

// RiskLevelForScore maps a score to its band:
// LOW [0,500), MEDIUM [500,750), HIGH [750,1000), CRITICAL [1000,∞).
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score < riskScoreMedium:
		return RiskLevelLow
	case score < riskScoreHigh:
		return RiskLevelMedium
	case score < riskScoreCritical:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// RiskFinding is one individual risk reported by the scoring service.
type RiskFinding struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Score       int    `json:"score"`
	Level       string `json:"level"`
	Value       string `json:"value,omitempty"`
}

// RiskReport is the raw scoring result for one token.
type RiskReport struct {
	Score        int           `json:"score"`
	Risks        []RiskFinding `json:"risks"`
	TokenProgram string        `json:"tokenProgram,omitempty"`
	TokenType    string        `json:"tokenType,omitempty"`
}

// Level returns the band for the report's total score.
func (r *RiskReport) Level() RiskLevel {
	if r == nil {
		return RiskLevelUnknown
	}
	return RiskLevelForScore(r.Score)
}

// RiskAssessment is a report judged against a configured maximum
// acceptable score.
type RiskAssessment struct {
	IsSafe bool
	RiskReport
}
