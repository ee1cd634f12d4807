// Package upload implements the upload command: shipping a cumulative
// dataset file to object storage.
package upload

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gpspull/cmd/common"
	"github.com/jonesrussell/gpspull/internal/archive"
	"github.com/jonesrussell/gpspull/internal/dataset"
)

// Command returns the upload command for use in the root command.
func Command() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a cumulative dataset to object storage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			if file == "" {
				athlete := deps.Config.Dataset.Athlete
				if athlete == "" {
					athlete = "all players"
				}
				store := dataset.NewStore(deps.Config.Dataset.Dir, deps.Logger)
				file = store.PathFor(athlete)
			}

			uploader, err := archive.NewUploader(deps.Config.Storage, deps.Logger)
			if err != nil {
				return err
			}

			if err := uploader.Upload(cmd.Context(), file); err != nil {
				if errors.Is(err, archive.ErrDisabled) {
					return fmt.Errorf("enable storage in configuration first: %w", err)
				}
				return fmt.Errorf("upload failed: %w", err)
			}
			fmt.Printf("Uploaded %s\n", file)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "file to upload (default: the configured athlete's cumulative CSV)")

	return cmd
}
