package models

// Severity grades a market-efficiency warning
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityModerate Severity = "MODERATE"
	SeverityLow      Severity = "LOW"
)

// Recommendation is the filter's verdict on an opportunity
type Recommendation string

const (
	RecommendDoNotBet Recommendation = "DO NOT BET"
	RecommendCaution  Recommendation = "PROCEED WITH CAUTION"
	RecommendReduced  Recommendation = "PROCEED (REDUCED STAKE)"
	RecommendProceed  Recommendation = "PROCEED"
)

// Flag is one triggered efficiency rule
type Flag struct {
	Severity   Severity `json:"severity"`
	Rule       string   `json:"rule"`
	Message    string   `json:"message"`
	Multiplier float64  `json:"multiplier"`
}

// Opportunity is a candidate wager derived from one event
type Opportunity struct {
	EventID            string  `json:"event_id"`
	BetType            BetType `json:"bet_type"`
	Side               Side    `json:"side"`
	Odds               float64 `json:"odds"`
	Line               float64 `json:"line"`
	ModelProbability   float64 `json:"model_probability"`
	FairProbability    float64 `json:"fair_probability"`
	ImpliedProbability float64 `json:"implied_probability"`
	Edge               float64 `json:"edge"`
	ExpectedValue      float64 `json:"expected_value"`

	// Set by the market-efficiency filter
	Flags                []Flag         `json:"flags,omitempty"`
	ConfidenceMultiplier float64        `json:"confidence_multiplier"`
	AdjustedEdge         float64        `json:"adjusted_edge"`
	AdjustedEV           float64        `json:"adjusted_ev"`
	Recommendation       Recommendation `json:"recommendation,omitempty"`
}

// Label returns the bet type and side key, e.g. "moneyline_away"
func (o Opportunity) Label() string {
	return BetLabel(o.BetType, o.Side)
}

// SizingProbability is the probability handed to the stake sizer. After filtering it is
// the fair probability plus the discounted edge.
func (o Opportunity) SizingProbability() float64 {
	if o.Recommendation == "" {
		return o.ModelProbability
	}
	p := o.FairProbability + o.AdjustedEdge
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
