package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var accountJSON bool

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show account information",
	Long: `Show the account's login, balance, file count and storage usage.

Examples:
  fmbot account
  fmbot account --json`,
	Args: cobra.NoArgs,
	RunE: showAccount,
}

// encodingsCmd represents the encodings command
var encodingsCmd = &cobra.Command{
	Use:   "encodings",
	Short: "Show the encoding queue",
	Args:  cobra.NoArgs,
	RunE:  showEncodings,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(encodingsCmd)

	accountCmd.Flags().BoolVar(&accountJSON, "json", false, "print the raw account record as JSON")
}

func showAccount(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient(GetConfig())
	if err != nil {
		return err
	}

	info, err := client.GetAccountInfo(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch account info: %w", err)
	}

	if accountJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	premium := "no"
	if info.Premium {
		premium = "yes"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Login:\t%s\n", info.Login)
	fmt.Fprintf(w, "Email:\t%s\n", info.Email)
	fmt.Fprintf(w, "Balance:\t%s $\n", info.Balance)
	fmt.Fprintf(w, "Files:\t%s\n", humanize.Comma(int64(info.FilesTotal)))
	fmt.Fprintf(w, "Storage used:\t%s\n", humanize.IBytes(uint64(max(int64(info.StorageUsed), 0))))
	fmt.Fprintf(w, "Storage left:\t%s\n", info.StorageLeft)
	fmt.Fprintf(w, "Premium:\t%s\n", premium)
	if info.PremiumExpire != "" {
		fmt.Fprintf(w, "Premium expires:\t%s\n", info.PremiumExpire)
	}
	fmt.Fprintf(w, "API:\t%s\n", client.GetBaseURL())
	return w.Flush()
}

func showEncodings(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient(GetConfig())
	if err != nil {
		return err
	}

	raw, err := client.ListEncodings(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch encoding list: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		// not JSON we can pretty print, show it as is
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(out.String())
	return nil
}
