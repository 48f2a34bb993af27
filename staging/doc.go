// Package staging implements the session-scoped staging store that keeps
// large intermediate results out of the model-facing conversation. A write
// contributes only a (key, size) receipt to the conversation regardless of
// content size; the cost of content is paid only when a caller reads it
// back, so callers should read just before use rather than eagerly.
package staging
