package utils

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// CopyToClipboard copies content to the system clipboard
func CopyToClipboard(content string) error {
	if clipboard.Unsupported {
		// 没有可用的剪贴板工具 (xclip / xsel / wl-copy)
		return fmt.Errorf("clipboard is not available on this system")
	}
	if err := clipboard.WriteAll(content); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
