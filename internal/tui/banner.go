package tui

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// maxBannerBytes bounds the welcome image download
const maxBannerBytes = 10 << 20

// BannerLoader fetches an image and renders it as terminal art
type BannerLoader func(ctx context.Context, url string) (string, error)

// NewHTTPBannerLoader returns a loader that downloads images with client and
// renders them into cols x rows cells
func NewHTTPBannerLoader(client *http.Client, cols, rows int) BannerLoader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return func(ctx context.Context, url string) (string, error) {
		img, err := fetchImage(ctx, client, url)
		if err != nil {
			return "", err
		}
		return RenderBanner(img, cols, rows), nil
	}
}

func fetchImage(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: %s", resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxBannerBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// RenderBanner draws img with 24-bit ANSI colors using upper half blocks:
// each cell shows two vertical pixels, foreground on top and background
// below. The image is fitted into cols x rows keeping its aspect ratio.
func RenderBanner(img image.Image, cols, rows int) string {
	if cols <= 0 {
		cols = 40
	}
	if rows <= 0 {
		rows = 12
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ""
	}

	fitted := imaging.Fit(img, cols, rows*2, imaging.Lanczos)
	fb := fitted.Bounds()
	w, h := fb.Dx(), fb.Dy()

	var b strings.Builder
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			r1, g1, b1 := rgb8(fitted, fb.Min.X+x, fb.Min.Y+y)
			r2, g2, b2 := r1, g1, b1
			if y+1 < h {
				r2, g2, b2 = rgb8(fitted, fb.Min.X+x, fb.Min.Y+y+1)
			}
			fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀", r1, g1, b1, r2, g2, b2)
		}
		b.WriteString("\x1b[0m\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func rgb8(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
