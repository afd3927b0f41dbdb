// Package demo decodes CS:GO demo files into the match model.
//
// ReadHeader is cheap and only touches the file header; it yields the
// MatchIdentity used as the cache key. Analyze runs the full pass and
// stops early when its context is cancelled.
package demo
