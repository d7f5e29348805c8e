/*
Package workflow implements the orchestrator that drives one formatting session.

The Orchestrator is a small state machine over domain.WorkflowState:

	Select --SelectTemplate--> Upload --UploadFile--> Result
	Select <-----GoBack------- Upload <----GoBack---- Result (not loading)
	any    ------Reset-------> Select

UploadFile does not perform the network call itself. It returns an Attempt tagged with
the current generation; the caller runs the request wherever it likes and feeds the
outcome back through Complete. Any transition that abandons an attempt bumps the
generation, so late completions are recognized as stale and dropped.

The Orchestrator is not safe for concurrent use. All calls must come from a single
execution context, such as a session.Session loop or a bubbletea Update function.
*/
package workflow
