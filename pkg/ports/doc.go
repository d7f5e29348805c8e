/*
Package ports defines the driven ports (interfaces) of the TraceScribe workflow.

These interfaces decouple the orchestrator from external implementations, so the
same workflow can run against different artifact storage backends and format services.

# Key Interfaces

  - ArtifactRegistry: creates, opens and revokes the transient handles that back a download.
  - Formatter: submits a document to the formatting service.
*/
package ports
