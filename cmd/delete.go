package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/fmbot/internal/filemoon"
)

var deleteForce bool

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <folder-id>...",
	Short: "Delete folders",
	Long: `Delete one or more folders by id. The folders are looked up first so the
confirmation prompt can show their names.

Examples:
  fmbot delete 42                  # Delete a single folder
  fmbot delete 42 43 44            # Delete several folders
  fmbot delete 42 --force          # Delete without confirmation`,
	Args: cobra.MinimumNArgs(1),
	RunE: deleteFolders,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "force delete without confirmation")
}

func deleteFolders(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseFolderID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	client, err := newAPIClient(GetConfig())
	if err != nil {
		return err
	}
	ctx := context.Background()

	// Check the folders exist first
	folders, err := client.ListFolders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	byID := make(map[int64]filemoon.Folder, len(folders))
	for _, folder := range folders {
		byID[folder.ID] = folder
	}

	targets := make([]filemoon.Folder, 0, len(ids))
	for _, id := range ids {
		folder, ok := byID[id]
		if !ok {
			return fmt.Errorf("folder %d does not exist", id)
		}
		targets = append(targets, folder)
	}

	// Show what will be deleted
	fmt.Printf("The following %d folder(s) will be deleted:\n", len(targets))
	for _, folder := range targets {
		fmt.Printf("  - %s (ID: %d)\n", folder.Name, folder.ID)
	}

	// Ask for confirmation unless --force is used
	if !deleteForce {
		fmt.Printf("\nAre you sure? This cannot be undone! (y/N): ")
		var response string
		fmt.Scanln(&response)

		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	deleteErrors := []error{}
	deletedCount := 0

	for _, folder := range targets {
		if err := client.DeleteFolder(ctx, folder.ID); err != nil {
			logrus.Errorf("Failed to delete folder %d: %v", folder.ID, err)
			deleteErrors = append(deleteErrors, fmt.Errorf("failed to delete folder %d: %w", folder.ID, err))
		} else {
			logrus.Debugf("Deleted folder: %d", folder.ID)
			deletedCount++
		}
	}

	// Report results
	if len(deleteErrors) > 0 {
		fmt.Printf("Deleted %d folders successfully, %d failed:\n", deletedCount, len(deleteErrors))
		for _, err := range deleteErrors {
			fmt.Printf("  Error: %v\n", err)
		}
		return fmt.Errorf("some folders could not be deleted")
	}

	logrus.Infof("Successfully deleted %d folder(s)", deletedCount)
	fmt.Printf("Deleted %d folder(s).\n", deletedCount)
	return nil
}
