// Package llm provides language model interfaces for resolution comment
// classification. It supports multiple LLM providers including OpenAI and
// Anthropic, with retry logic, rate limiting, and response caching.
package llm
