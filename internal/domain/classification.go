package domain

// FallbackRecommendation is returned whenever the classifier cannot produce
// a usable result.
const FallbackRecommendation = "Unable to analyze urgency. Please review manually."

// ClassificationResult is the transient outcome of AI triage, folded into
// ticket fields at creation.
type ClassificationResult struct {
	Urgency        TicketPriority
	Recommendation string
}

// FallbackClassification is the safe default applied on any classifier failure.
func FallbackClassification() ClassificationResult {
	return ClassificationResult{
		Urgency:        TicketPriorityMedium,
		Recommendation: FallbackRecommendation,
	}
}
