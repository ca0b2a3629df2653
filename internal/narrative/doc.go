// Package narrative turns the structured inspection reports into reader
// facing commentary. A configured provider (OpenAI Responses, Anthropic
// Messages, or an OpenRouter chat endpoint) is asked first under a hard
// timeout; any failure produces the deterministic template instead, so a
// commentary is always returned.
package narrative
