package models

// EnrichmentTag names a data family the shortlist gate may request per symbol.
type EnrichmentTag string

const (
	EnrichIntraday     EnrichmentTag = "INTRADAY"
	EnrichEOD          EnrichmentTag = "EOD"
	EnrichFundamentals EnrichmentTag = "FUNDAMENTALS"
	EnrichSentiment    EnrichmentTag = "SENTIMENT"
)

// ShortlistItem is one symbol chosen by the shortlist gate.
type ShortlistItem struct {
	Symbol              string          `json:"symbol"`
	Priority            int             `json:"priority"`
	Reasons             []string        `json:"reasons"`
	RequestedEnrichment []EnrichmentTag `json:"requested_enrichment"`
	Avoid               bool            `json:"avoid"`
	RiskFlags           []string        `json:"risk_flags"`
}

// Requests reports whether the item explicitly asked for tag.
func (s ShortlistItem) Requests(tag EnrichmentTag) bool {
	for _, t := range s.RequestedEnrichment {
		if t == tag {
			return true
		}
	}
	return false
}

// ShortlistPlan is the shortlist gate output.
type ShortlistPlan struct {
	Shortlist     []ShortlistItem `json:"shortlist"`
	GlobalNotes   []string        `json:"global_notes"`
	LimitsApplied map[string]int  `json:"limits_applied,omitempty"`
}

// DecisionKeep is a setup the decision stage chose to retain.
type DecisionKeep struct {
	Symbol            string  `json:"symbol"`
	Confidence        float64 `json:"confidence"`
	SetupBias         string  `json:"setup_bias,omitempty"`
	MustReview        bool    `json:"must_review"`
	RssNeeded         bool    `json:"rss_needed"`
	ExpandedRssNeeded bool    `json:"expanded_rss_needed"`
	ExpandedRssReason string  `json:"expanded_rss_reason,omitempty"`
}

// DecisionDrop is a setup the decision stage chose to discard.
type DecisionDrop struct {
	Symbol  string   `json:"symbol"`
	Reasons []string `json:"reasons"`
}

// DecisionUpdate is the decision stage output.
type DecisionUpdate struct {
	Keep          []DecisionKeep `json:"keep"`
	Drop          []DecisionDrop `json:"drop"`
	LimitsApplied map[string]int `json:"limits_applied,omitempty"`
}

// IsEmpty reports whether the update neither keeps nor drops anything.
func (d *DecisionUpdate) IsEmpty() bool {
	return d == nil || (len(d.Keep) == 0 && len(d.Drop) == 0)
}

// ReviewItem is one entry of the synthesis review list.
type ReviewItem struct {
	Symbol            string   `json:"symbol"`
	WhatToReview      []string `json:"what_to_review"`
	RiskSummary       []string `json:"risk_summary"`
	OneParagraphBrief string   `json:"one_paragraph_brief"`
}

// PortfolioGuidance is the synthesis stage's sizing advice.
type PortfolioGuidance struct {
	PositionCount int      `json:"position_count"`
	RiskPosture   string   `json:"risk_posture"`
	Notes         []string `json:"notes,omitempty"`
}

// FundamentalsNewsSynthesis is the final LLM stage output.
type FundamentalsNewsSynthesis struct {
	RankedReviewList  []ReviewItem      `json:"ranked_review_list"`
	PortfolioGuidance PortfolioGuidance `json:"portfolio_guidance"`
}

// IsEmpty reports whether the synthesis carries no review items.
func (f *FundamentalsNewsSynthesis) IsEmpty() bool {
	return f == nil || len(f.RankedReviewList) == 0
}

// DeepDiveBrief is a web-grounded per-symbol research note.
type DeepDiveBrief struct {
	Symbol    string      `json:"symbol"`
	Summary   string      `json:"summary"`
	Catalysts []string    `json:"catalysts"`
	Risks     []string    `json:"risks"`
	Sources   []WebSource `json:"sources,omitempty"`
}

// WebSource is a citation returned by a grounded LLM call.
type WebSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}
