// Package core provides the foundational domain types shared by the testmesh
// packages. It defines:
//
//   - Events published by the test runner and the trigger keys derived from them
//   - Commands (PAUSE / RESUME) sent back to the runner
//   - Agent configuration, per-turn AgentContext and structured AgentResponse
//   - Tool descriptors exposed to agents, including the reserved control tools
//   - The error taxonomy (ConfigError, TransportError, ParseError)
//
// The package keeps implementation concerns (bus, registries, inference
// adapters) out of scope so every other package can depend on it without
// cycles.
package core
