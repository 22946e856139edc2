package story

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/beforeigo/beforeigo/internal/repositories"
	"github.com/beforeigo/beforeigo/internal/sqlite"
	"github.com/beforeigo/beforeigo/internal/testhelpers"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "story",
	Title: "Story operations",
}

func init() {
	Export.Flags().String("out", "", "path to the export file, defaults to stdout")
}

var Export = &cobra.Command{
	Use:     "export [storyID]",
	GroupID: "story",
	Short:   "Export a story",
	Long:    "Exports a story and its responses as JSON from the database at BEFOREIGO_SQLITE_URL",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := export(cmd, args[0]); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "export error: %v\n", err)
			os.Exit(1)
		}
	},
}

func export(cmd *cobra.Command, storyID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	sqliteURL, ok := os.LookupEnv("BEFOREIGO_SQLITE_URL")
	if !ok {
		return fmt.Errorf("BEFOREIGO_SQLITE_URL not set")
	}

	logger := testhelpers.NewLogger(io.Discard)
	db, err := sqlite.NewDatabase(ctx, sqliteURL, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	stories := repositories.NewStoryRepository(db, logger)
	responses := repositories.NewResponseRepository(db, logger)

	story, err := stories.GetByID(ctx, storyID)
	if err != nil {
		return fmt.Errorf("get story: %w", err)
	}
	answers, err := responses.ListForStory(ctx, storyID)
	if err != nil {
		return fmt.Errorf("list responses: %w", err)
	}

	document := map[string]any{
		"story":     story,
		"responses": answers,
	}
	payload, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("read out flag: %w", err)
	}
	if outPath == "" {
		_, err = os.Stdout.Write(append(payload, '\n'))
		return err
	}
	return os.WriteFile(outPath, payload, 0o600)
}
