package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <folder-name>",
	Short: "Create a folder",
	Long: `Create a top level folder and print its id.

Examples:
  fmbot create Movies
  fmbot create "Summer 2024"`,
	Args: cobra.MinimumNArgs(1),
	RunE: createFolder,
}

// renameCmd represents the rename command
var renameCmd = &cobra.Command{
	Use:   "rename <folder-id> <new-name>",
	Short: "Rename a folder",
	Args:  cobra.MinimumNArgs(2),
	RunE:  renameFolder,
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(renameCmd)
}

func createFolder(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return fmt.Errorf("folder name must not be empty")
	}

	client, err := newAPIClient(GetConfig())
	if err != nil {
		return err
	}

	folderID, err := client.CreateFolder(context.Background(), name)
	if err != nil {
		return fmt.Errorf("failed to create folder %q: %w", name, err)
	}

	logrus.Infof("Created folder %q", name)
	fmt.Printf("Folder '%s' created successfully with ID: %s\n", name, folderID)
	return nil
}

func renameFolder(cmd *cobra.Command, args []string) error {
	folderID, err := parseFolderID(args[0])
	if err != nil {
		return err
	}
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if name == "" {
		return fmt.Errorf("new folder name must not be empty")
	}

	client, err := newAPIClient(GetConfig())
	if err != nil {
		return err
	}

	if err := client.RenameFolder(context.Background(), folderID, name); err != nil {
		return fmt.Errorf("failed to rename folder %d: %w", folderID, err)
	}

	fmt.Printf("Folder %d renamed to '%s'.\n", folderID, name)
	return nil
}
