package canonical

// PromptDetails breaks down the input-token count by how the provider
// billed it: tokens served from cache, tokens spent writing new cache
// entries, and tokens spent on audio input.
type PromptDetails struct {
	Cached        int `json:"cached,omitempty"`
	CacheCreation int `json:"cache_creation,omitempty"`
	Audio         int `json:"audio,omitempty"`
}

// CompletionDetails breaks down the output-token count, chiefly for
// extended-thinking/reasoning models that bill hidden reasoning tokens
// separately from the visible completion.
type CompletionDetails struct {
	Reasoning int `json:"reasoning,omitempty"`
	Accepted  int `json:"accepted,omitempty"`
	Rejected  int `json:"rejected,omitempty"`
	Audio     int `json:"audio,omitempty"`
}

// Usage is the canonical per-call token accounting record, merged across a
// run's provider calls by the usage/finish emitter (C7). It carries enough
// detail to feed a cost calculator but computes no cost itself.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`

	PromptDetails     PromptDetails     `json:"prompt_details"`
	CompletionDetails CompletionDetails `json:"completion_details"`

	// CacheUsed is true when any part of the prompt was served from or
	// written to a provider-side prompt cache.
	CacheUsed bool `json:"cache_used"`
}

// Add merges another Usage's counters into u, e.g. across the retries and
// tool hops of a single run.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.PromptDetails.Cached += other.PromptDetails.Cached
	u.PromptDetails.CacheCreation += other.PromptDetails.CacheCreation
	u.PromptDetails.Audio += other.PromptDetails.Audio
	u.CompletionDetails.Reasoning += other.CompletionDetails.Reasoning
	u.CompletionDetails.Accepted += other.CompletionDetails.Accepted
	u.CompletionDetails.Rejected += other.CompletionDetails.Rejected
	u.CompletionDetails.Audio += other.CompletionDetails.Audio
	u.CacheUsed = u.CacheUsed || other.CacheUsed
}

// Finalize recomputes TotalTokens and the CacheUsed flag from the rest of
// the record. Adapters call this once per completed call before handing
// the Usage to the emitter.
func (u *Usage) Finalize() {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	if u.PromptDetails.Cached > 0 || u.PromptDetails.CacheCreation > 0 {
		u.CacheUsed = true
	}
}
