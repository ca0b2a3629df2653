// Package llm posts commentary prompts to an OpenAI-compatible chat
// completions endpoint. The narrative package uses it for the openrouter
// provider; the openai and anthropic providers go through their SDKs.
//
// Client.Complete sends an optional system message and one user message and
// returns the trimmed reply. Replies are read from message content, falling
// back to the streaming delta and legacy text shapes.
//
// Empty replies, HTTP 408/429/5xx and network timeouts are retried with
// doubling delays (1s base, 10s ceiling, 5 attempts by default). Retry-After
// is honoured up to the ceiling. The narrative provider sets a single
// attempt and relies on its own deadline.
package llm
