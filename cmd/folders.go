package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/fmbot/internal/directory"
	"github.com/HaiFongPan/fmbot/internal/filemoon"
	"github.com/HaiFongPan/fmbot/internal/tui/theme"
	"github.com/HaiFongPan/fmbot/internal/utils"
)

var (
	foldersPage int
	showDate    bool
	filesPlain  bool
)

// foldersCmd represents the folders command
var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List folders, newest first",
	Long: `List the account's folders sorted by creation date, newest first.
Use --page to show a single page of bot.page_size folders.

Examples:
  fmbot folders
  fmbot folders --page 2
  fmbot folders --date=false`,
	Args: cobra.NoArgs,
	RunE: listFolders,
}

// filesCmd represents the files command
var filesCmd = &cobra.Command{
	Use:   "files <folder-id>",
	Short: "List the files of a folder with their links",
	Long: `List the files of a folder sorted by title. Links use the display host
configured in bot.display_link_host.

Examples:
  fmbot files 42
  fmbot files 42 --plain     # "title: link" lines, as the bot sends them`,
	Args: cobra.ExactArgs(1),
	RunE: listFiles,
}

func init() {
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(filesCmd)

	foldersCmd.Flags().IntVarP(&foldersPage, "page", "p", 0, "show only this page (1-based)")
	foldersCmd.Flags().BoolVar(&showDate, "date", true, "show creation dates")
	filesCmd.Flags().BoolVar(&filesPlain, "plain", false, "print plain title: link lines")
}

// parseFolderID parses a folder id argument
func parseFolderID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid folder id %q", arg)
	}
	return id, nil
}

func listFolders(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	folders, err := client.ListFolders(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	folders = directory.SortFolders(folders)

	if foldersPage > 0 {
		page := directory.Paginate(folders, foldersPage, cfg.Bot.PageSize)
		logrus.Debugf("Showing page %d of %d", page.Number, page.TotalPages())
		if err := outputFolders(page.Folders); err != nil {
			return err
		}
		fmt.Printf("\nPage %d | %d, Total Folders: %d\n", page.Number, page.TotalPages(), page.TotalCount)
		return nil
	}

	return outputFolders(folders)
}

func outputFolders(folders []filemoon.Folder) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	// Header
	header := "ID\tNAME"
	if showDate {
		header += "\tCREATED"
	}
	fmt.Fprintln(w, header)

	for _, folder := range folders {
		line := fmt.Sprintf("%d\t%s", folder.ID, folder.Name)
		if showDate {
			created := "-"
			if !folder.CreatedAt.IsZero() {
				created = folder.CreatedAt.Format(time.DateTime)
			}
			line += "\t" + created
		}
		fmt.Fprintln(w, line)
	}

	return w.Flush()
}

func listFiles(cmd *cobra.Command, args []string) error {
	folderID, err := parseFolderID(args[0])
	if err != nil {
		return err
	}

	cfg := GetConfig()
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	files, err := client.ListFiles(context.Background(), folderID)
	if err != nil {
		return fmt.Errorf("failed to list files of folder %d: %w", folderID, err)
	}

	links := utils.NewLinkRewriter(cfg.Bot.CanonicalLinkHost, cfg.Bot.DisplayLinkHost)
	files = directory.New(client, cfg.Bot.PageSize, links).ShapeFiles(files)

	if len(files) == 0 {
		fmt.Println("No files found in this folder.")
		return nil
	}

	if filesPlain {
		for _, file := range files {
			fmt.Printf("%s: %s\n", file.Title, file.Link)
		}
		return nil
	}

	clickable := isatty.IsTerminal(os.Stdout.Fd())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tTITLE\tLINK")
	for _, file := range files {
		icon := utils.GetCategoryEmoji(utils.GetFileCategory(utils.DetectContentType(file.Title)))
		link := file.Link
		if clickable {
			link = theme.FormatClickableURL(file.Link, file.Link)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", icon, file.Title, link)
	}
	return w.Flush()
}
