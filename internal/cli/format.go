package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/tracescribe/pkg/adapters/file"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/session"
	"github.com/aretw0/tracescribe/pkg/validator"
	"github.com/google/uuid"
)

// FormatOptions configures a headless format run.
type FormatOptions struct {
	Template string
	Path     string
	// Out is the destination file. Empty means the suggested name next to Path.
	// An existing directory receives the suggested name inside it.
	Out    string
	Stdout io.Writer
}

// FormatResult describes the document written by RunFormat.
type FormatResult struct {
	Template domain.TemplateID `json:"template"`
	Source   string            `json:"source"`
	Output   string            `json:"output"`
	Size     int64             `json:"size"`
}

// RunFormat walks one session through Select, Upload and Result and saves the artifact.
func RunFormat(ctx context.Context, rt *Runtime, opts FormatOptions) (*FormatResult, error) {
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}

	id, err := domain.ParseTemplateID(opts.Template)
	if err != nil {
		return nil, err
	}
	doc, err := validator.Stat(opts.Path)
	if err != nil {
		return nil, err
	}

	sess := session.New(uuid.NewString(), rt.NewOrchestrator(), rt.Client, session.WithLogger(rt.Logger))
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx)); cerr != nil {
			rt.Logger.Warn("Failed to close session", "session_id", sess.ID(), "error", cerr)
		}
	}()

	printSystemMessage(out, "Formatting %s as %s (%s)...", doc.Name, id, domain.FormatFileSize(doc.Size))
	blob, err := sess.Format(ctx, id, doc)
	if err != nil {
		return nil, err
	}

	dest := file.Destination(opts.Out, opts.Path, blob.Name)
	if err := file.WriteFile(dest, blob.Data); err != nil {
		return nil, err
	}
	printSystemMessage(out, "Saved %s (%s)", dest, domain.FormatFileSize(int64(len(blob.Data))))

	return &FormatResult{
		Template: id,
		Source:   opts.Path,
		Output:   dest,
		Size:     int64(len(blob.Data)),
	}, nil
}

func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> "+format+"\n", args...)
}
