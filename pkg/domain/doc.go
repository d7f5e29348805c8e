/*
Package domain contains the core types of the TraceScribe workflow.

It defines the closed set of document templates, the file reference handed to the
validator and the format client, and the WorkflowState snapshot that the orchestrator
owns and the presentation layer renders. The package is free of I/O and persistence.

# Key Entities

  - TemplateID: one of the fixed template kinds accepted by the formatting service.
  - FileRef: a named, sized source document that can be opened for reading.
  - WorkflowState: the Select, Upload, Result snapshot of one session.
  - Artifact: the downloadable handle produced by a successful format request.
*/
package domain
