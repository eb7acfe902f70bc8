package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/livesync"
	"github.com/propdesk/cli/internal/output"
	"github.com/propdesk/cli/internal/resolve"
	"github.com/propdesk/cli/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	propertiesLimit  int
	propertiesOffset int
	propertiesSearch string
	photoCaption     string
	photoWorkers     int
)

var propertiesCmd = &cobra.Command{
	Use:     "properties",
	Aliases: []string{"props"},
	Short:   "List, search and update properties",
}

var propertiesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List properties",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		page, err := apiClient.ListProperties(cmd.Context(), propertiesLimit, propertiesOffset)
		if err != nil {
			return err
		}
		props := livesync.Search(page.Items, propertiesSearch)

		if flagJSON {
			output.JSON(cmd.OutOrStdout(), api.Page[api.Property]{Items: props, Total: page.Total})
			return nil
		}
		output.PropertyTable(cmd.OutOrStdout(), props)
		return nil
	},
}

var propertiesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search properties on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		page, err := apiClient.SearchProperties(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), page)
			return nil
		}
		output.PropertyTable(cmd.OutOrStdout(), page.Items)
		return nil
	},
}

var uploadPhotoCmd = &cobra.Command{
	Use:   "upload-photo <property> <file>...",
	Short: "Attach photos to a property",
	Long: `Upload one or more photos to a property. The property is an ID or its
exact title. Several files are uploaded concurrently.

  propdesk properties upload-photo "Maple Court" front.jpg back.jpg --caption "Spring 2024"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUploadPhoto,
}

func init() {
	propertiesLsCmd.Flags().IntVar(&propertiesLimit, "limit", 50, "Maximum properties to fetch")
	propertiesLsCmd.Flags().IntVar(&propertiesOffset, "offset", 0, "Properties to skip")
	propertiesLsCmd.Flags().StringVar(&propertiesSearch, "search", "", "Only show fetched properties containing this text")

	uploadPhotoCmd.Flags().StringVar(&photoCaption, "caption", "", "Caption applied to every photo")
	uploadPhotoCmd.Flags().IntVarP(&photoWorkers, "workers", "w", 4, "Number of concurrent uploads")

	propertiesCmd.AddCommand(propertiesLsCmd, propertiesSearchCmd, uploadPhotoCmd)
	rootCmd.AddCommand(propertiesCmd)
}

func runUploadPhoto(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	ctx := cmd.Context()
	propertyID, err := resolve.Property(ctx, apiClient, args[0])
	if err != nil {
		return err
	}

	files := args[1:]
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return fmt.Errorf("cannot access %s: %w", f, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", f)
		}
	}

	workers := photoWorkers
	if workers < 1 {
		workers = 1
	}

	var uploaded atomic.Int64
	var failed atomic.Int64
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	// Every file is attempted; failures are only counted.
	var g errgroup.Group
	g.SetLimit(workers)
	for _, f := range files {
		f := f
		g.Go(func() error {
			err := apiClient.UploadPhoto(ctx, propertyID, api.PhotoUpload{Path: f, Caption: photoCaption})
			if err != nil {
				output.Notice(errOut, "upload "+filepath.Base(f), err)
				logger.WarnErr("upload_photo_failed", err, map[string]interface{}{
					"property_id": propertyID,
					"file":        filepath.Base(f),
				})
				failed.Add(1)
				return nil
			}
			fmt.Fprintf(out, "  Uploaded: %s\n", filepath.Base(f))
			uploaded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(out, "\nDone: %d uploaded, %d failed\n", uploaded.Load(), failed.Load())
	if failed.Load() > 0 {
		return fmt.Errorf("%d photo(s) failed to upload", failed.Load())
	}
	return nil
}
