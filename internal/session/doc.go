// Package session implements multi-agent session management and analysis.
//
// The Manager is the single writer over session state: agent membership,
// per-agent contexts, and message history all mutate through it, and every
// mutation is persisted through the storage adapter before it is observable.
// The Analyzer derives a structured SessionAnalysis from a transcript by
// prompting an analyst agent through the generation gateway, degrading to
// partial results when the model is unavailable or its output is malformed.
// AnalyzeCollaboration is a pure function scoring how evenly message volume
// is spread across active agents.
package session
