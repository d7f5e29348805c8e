/*
Package tracescribe drives documents through a remote formatting service.

A user picks one of the compliance templates, uploads a .docx, .pdf or .txt file, and
downloads the formatted Word document the service returns. The flow is a three-step
state machine owned by [workflow.Orchestrator]; every adapter (terminal UI, HTTP API,
MCP tools, headless CLI) sends intents to it and renders its state.

# Layout

  - pkg/domain: state, template identifiers, errors and lifecycle events.
  - pkg/catalog: the compiled-in template descriptors.
  - pkg/validator: local file checks run before anything is sent.
  - pkg/client: the multipart client for POST /api/format.
  - pkg/workflow: the orchestrator and its transition rules.
  - pkg/session: a goroutine-owned orchestrator for concurrent adapters.
  - pkg/adapters: artifact registries (memory, file, redis) and the HTTP and MCP surfaces.

# Usage

	orch := workflow.New()
	_ = orch.SelectTemplate(ctx, domain.TemplateCAPA)

	file, err := validator.Stat("report.pdf")
	if err != nil {
		log.Fatal(err)
	}
	attempt, err := orch.UploadFile(ctx, file)
	if err != nil {
		log.Fatal(err)
	}
	orch.Run(ctx, attempt, client.New(client.DefaultBaseURL))

	if state := orch.State(); state.Succeeded() {
		blob, _ := orch.Registry().Open(ctx, state.Artifact.Handle)
		_ = os.WriteFile(blob.Name, blob.Data, 0644)
	}
*/
package tracescribe
