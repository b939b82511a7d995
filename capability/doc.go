// Package capability holds the per-session registry of executable
// capabilities (UI keywords and similar) that agent actions are dispatched to.
//
// A session registers a name → Handler map when it starts and removes it when
// it ends. Names starting with an underscore are private: they can be looked
// up by the host but are never advertised to agents. Every session's tool
// list also carries the reserved pause_execution and resume_execution tools.
package capability
