package consts

import "time"

// Supervisor limits
const (
	// DefaultMaxConcurrent is the number of worker processes allowed to run at once
	DefaultMaxConcurrent = 4
	// TaskPreviewLength is the number of characters of a task shown in listings
	TaskPreviewLength = 100
)

// Agent budgets
const (
	// DefaultMaxTotalSteps bounds the number of plan steps a single task may execute
	DefaultMaxTotalSteps = 30
	// DefaultMaxIterationsPerStep bounds the model round trips inside one step
	DefaultMaxIterationsPerStep = 30
)

// LLM default configurations
const (
	// StructuredMaxTokens is the completion budget for plan, decision and replan calls
	StructuredMaxTokens = 5000
	// AgentMaxTokens is the completion budget for step conversations
	AgentMaxTokens = 10000
)

// Timeouts for various operations
const (
	// PollInterval is the supervisor reap/admit cadence
	PollInterval = 100 * time.Millisecond
	// Timeout1Second is a 1 second timeout
	Timeout1Second = 1 * time.Second
	// Timeout2Seconds is a 2 second timeout
	Timeout2Seconds = 2 * time.Second
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout60Seconds is a 60 second timeout (1 minute)
	Timeout60Seconds = 60 * time.Second
	// Timeout10Minutes is a 10 minute timeout
	Timeout10Minutes = 10 * time.Minute
)
