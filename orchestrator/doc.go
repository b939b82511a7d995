// Package orchestrator reacts to runner events by consulting the agents
// registered for the event's trigger and dispatching their actions.
//
// The pipeline for one event is:
//
//  1. Orchestrator matches the trigger against the agent registry
//  2. Builder assembles an immutable AgentContext (session tools, latest
//     screenshot, recent history); events without a usable session stop here
//  3. Executor runs every matched agent concurrently, each under its own
//     timeout, isolating errors and panics per agent
//  4. Dispatcher executes each agent's actions in order against the session's
//     capabilities or the command channel
//
// Nothing in this pipeline propagates a failure to the publisher of the event.
package orchestrator
