// Package tool provides the tool registry and the built-in catalog of
// local tools: file reading and writing, directory listing, shell
// execution, and web search.
//
// Tools are declared once at registry construction and the registry is
// immutable afterward. Each registration carries a danger flag; callers
// decide what "dangerous" means for their approval flow, the registry
// just reports it.
//
// Handler failures never escape Execute. Every error is folded into a
// structured result the model can read, so a failing tool produces a
// tool result message rather than aborting the run.
package tool
