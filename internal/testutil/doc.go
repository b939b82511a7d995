// Package testutil contains helper builders used across tests to construct
// runner events and recording capability handlers with little boilerplate.
// They are not intended for production usage.
package testutil
