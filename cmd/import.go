package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pensieve-ai/pensieve/internal/app"
	"github.com/pensieve-ai/pensieve/internal/note"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a notes export into the corpus",
	Long: `Import reads a JSON export and upserts its object types, notes, index
chunks and calendar events. Notes without a stored embedding are embedded
during import.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// exportFile is the JSON import format.
type exportFile struct {
	Types  []note.ObjectType    `json:"types"`
	Notes  []note.Note          `json:"notes"`
	Chunks []note.Chunk         `json:"chunks"`
	Events []note.CalendarEvent `json:"events"`
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading export file: %w", err)
	}
	var export exportFile
	if err := json.Unmarshal(raw, &export); err != nil {
		return fmt.Errorf("parsing export file: %w", err)
	}

	a, err := app.Setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, t := range export.Types {
		if err := a.Store.UpsertType(ctx, t); err != nil {
			return err
		}
	}

	embedded := 0
	for _, n := range export.Notes {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = n.CreatedAt
		}
		if len(n.Embedding) == 0 {
			text := n.Title + "\n" + note.StripHTML(n.Content)
			vec, err := a.Client.Embed(ctx, text)
			if err != nil {
				a.Logger.Warn("embedding note failed, importing without vector",
					"note", n.ID, "error", err)
			} else {
				n.Embedding = vec
				embedded++
			}
		}
		if err := a.Store.UpsertNote(ctx, n); err != nil {
			return err
		}
	}

	for _, c := range export.Chunks {
		if err := a.Store.UpsertChunk(ctx, c); err != nil {
			return err
		}
	}
	for _, e := range export.Events {
		if err := a.Store.UpsertEvent(ctx, e); err != nil {
			return err
		}
	}

	fmt.Printf("imported %d types, %d notes (%d embedded), %d chunks, %d events\n",
		len(export.Types), len(export.Notes), embedded, len(export.Chunks), len(export.Events))
	return nil
}
