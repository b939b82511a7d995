// Package model defines the provider-agnostic inference abstraction used by
// testmesh agents and the recovery path.
//
// The agent layer only needs text in / text out: a system prompt, a user
// prompt and a block of event context go in, raw model text comes out.
// Providers (OpenAI-compatible endpoints including Ollama, Anthropic)
// implement Inference in sub-packages so higher layers stay decoupled from
// vendor SDKs. MockModel and InferenceFunc facilitate tests.
package model
