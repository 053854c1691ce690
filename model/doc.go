// Package model defines the provider-agnostic abstractions for the language
// models that drive ModelAgents.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, ToolCall)
//   - Keep request/response shapes transport independent
//   - Deterministic replay for tests and the offline demo (ScriptedModel)
//
// Providers (OpenAI, Anthropic) live in sub-packages so higher layers never
// import vendor SDKs directly.
package model
