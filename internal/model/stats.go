package model

import "time"

// ProcessingStats is a point-in-time snapshot of session progress derived by
// the engine and carried on chunk_complete and complete events.
type ProcessingStats struct {
	TotalWords             int     `json:"totalWords"`
	ProcessedWords         int     `json:"processedWords"`
	SuccessfulWords        int     `json:"successfulWords"`
	FailedWords            int     `json:"failedWords"`
	CurrentChunk           int     `json:"currentChunk"`
	TotalChunks            int     `json:"totalChunks"`
	TotalTokensUsed        int     `json:"totalTokensUsed"`
	EstimatedCost          float64 `json:"estimatedCost"`
	AverageProcessingMS    float64 `json:"averageProcessingTime"`
	EstimatedTimeRemaining float64 `json:"estimatedTimeRemaining"`
	ProcessingRate         float64 `json:"processingRate"`
}

// SessionSummary is the derived view returned by the status endpoint: the
// session, its most recent results and aggregate rates.
type SessionSummary struct {
	Session        ProcessingSession  `json:"session"`
	RecentResults  []ProcessingResult `json:"recentResults"`
	SuccessRate    float64            `json:"successRate"`
	CompletionRate float64            `json:"completionRate"`
	AvgCostPerWord float64            `json:"avgCostPerWord"`
	Duration       time.Duration      `json:"duration"`
}
