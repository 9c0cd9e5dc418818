// Package analysis scores a submission with the external analysis engine.
//
// The Invoker builds a small context (platform and category), picks video
// or script mode from the media's source kind, sends one request through the
// llm client, and turns the reply into a queue.Report.
//
// Replies are expected to be a single JSON object but are not trusted to be
// one. ExtractJSON strips code fences, then tries a strict parse, then the
// outermost {...} span, then a lenient pass that removes stray control
// characters, and finally a repair of truncated output. A reply with no
// usable object yields ErrResponseInvalid.
//
// Failures fall into three kinds that callers match with errors.Is:
// ErrRejected (the engine declined on policy grounds), ErrResponseInvalid
// (nothing parseable came back) and ErrTransport (the call itself failed).
package analysis
