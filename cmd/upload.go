package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/fmbot/internal/upload"
	"github.com/HaiFongPan/fmbot/internal/utils"
)

var (
	uploadFolder     int64
	uploadNoProgress bool
	uploadDetach     bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <url>...",
	Short: "Upload files to a folder by remote URL",
	Long: `Queue remote uploads: the hosting service downloads each URL into the
folder. Progress is polled every bot.poll_interval until every upload
completes or fails.

Examples:
  fmbot upload https://example.com/video.mp4 --folder 42
  fmbot upload https://a.example/1.mp4 https://a.example/2.mp4 -F 42
  fmbot upload https://example.com/video.mp4 --no-progress   # Print only the result
  fmbot upload https://example.com/video.mp4 --detach        # Submit and exit`,
	Args: cobra.MinimumNArgs(1),
	RunE: uploadURLs,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().Int64VarP(&uploadFolder, "folder", "F", 0, "target folder id (0 uploads to the root folder)")
	uploadCmd.Flags().BoolVar(&uploadNoProgress, "no-progress", false, "disable the progress line")
	uploadCmd.Flags().BoolVarP(&uploadDetach, "detach", "d", false, "submit and exit without waiting")
}

func uploadURLs(cmd *cobra.Command, args []string) error {
	validate := validator.New()
	for _, sourceURL := range args {
		if err := validate.Var(sourceURL, "required,url"); err != nil {
			return fmt.Errorf("invalid upload url %q", sourceURL)
		}
	}

	cfg := GetConfig()
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := upload.NewMonitor(client, cfg.Bot.PollInterval)

	failed := 0
	for i, sourceURL := range args {
		if len(args) > 1 {
			fmt.Printf("[%d/%d] %s\n", i+1, len(args), sourceURL)
		}
		if err := uploadOne(ctx, monitor, sourceURL); err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nStopped watching; queued uploads keep running remotely.")
				return nil
			}
			logrus.Errorf("Upload of %s failed: %v", sourceURL, err)
			fmt.Printf("Error: %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}

func uploadOne(ctx context.Context, monitor *upload.Monitor, sourceURL string) error {
	job, err := monitor.Submit(ctx, sourceURL, uploadFolder)
	if err != nil {
		return fmt.Errorf("failed to queue remote upload: %w", err)
	}
	fmt.Println(job.QueuedText())

	if uploadDetach {
		return nil
	}

	var render upload.RenderFunc
	var progress *utils.ProgressLine
	if uploadNoProgress {
		render = func(ctx context.Context, text string) error {
			return nil
		}
	} else {
		progress = utils.NewProgressLine(os.Stdout, "")
		render = func(ctx context.Context, text string) error {
			progress.Update(text)
			return nil
		}
	}

	err = monitor.Watch(ctx, job, render)
	if progress != nil {
		progress.Close()
	}
	if err != nil {
		return err
	}

	if uploadNoProgress {
		fmt.Println(job.LastRendered)
	}
	if job.State == upload.StateFailed {
		return fmt.Errorf("upload %s did not complete", job.FileCode)
	}
	return nil
}
