// Package llm talks to an OpenAI-compatible chat completion endpoint
// (OpenRouter by default) on behalf of the analysis stage.
//
// Requests carry a system prompt and a list of user content parts. A part is
// either text or an inline video supplied as a base64 data URL, which lets
// the same call serve both script and video analysis.
//
// # Outcomes
//
// Complete returns the raw text of the first non-empty choice. It never
// interprets that text; JSON extraction belongs to the caller.
//
// A response that declines the request (a refusal message, a content_filter
// or safety finish reason, or a provider moderation error) yields an error
// matching ErrRejected. Everything else that prevents a usable reply is a
// transport failure.
//
// # Retry Behaviour
//
// HTTP 408/429/5xx, empty replies and network timeouts are retried with
// exponential backoff up to the configured attempt count. Rejections and
// other 4xx responses are never retried. The analysis stage configures a
// single attempt by default.
package llm
