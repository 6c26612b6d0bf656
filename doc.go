// Package taichat holds the shared data model for the taichat terminal
// chat client: conversation messages, tool declarations and results,
// streaming events, chat provider interfaces, and categorized errors.
//
// The interesting machinery lives in the subpackages:
//
//   - [github.com/zPy52/taichat/agent]: the tool-calling agent loop with
//     human-in-the-loop approval gating
//   - [github.com/zPy52/taichat/tool]: the tool registry and the fixed
//     catalog of local tools (file I/O, shell execution, web search)
//   - [github.com/zPy52/taichat/session]: per-conversation state and the
//     display feed consumed by the terminal frontend
//   - [github.com/zPy52/taichat/provider]: model resolution and the
//     vendor-specific streaming clients
//   - [github.com/zPy52/taichat/event]: the typed event stream emitted
//     during an agent run
package taichat
