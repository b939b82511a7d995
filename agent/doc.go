// Package agent binds configured language-model advisors to runner triggers.
//
// The package focuses on three concerns:
//
//  1. Registry: agent configs and the trigger map (entity_type + "_" + status
//     → agent names, in registration order)
//  2. Client: one advisor turn (prompt rendering, inference, output parsing,
//     conversion of suggestions into actions)
//  3. ClientFactory: selection of the inference adapter from an agent's
//     endpoint and capabilities
//
// Registries are constructed explicitly by the composition root; there is no
// package-level state. Dispatching the resulting actions is left to the
// orchestrator package.
package agent
