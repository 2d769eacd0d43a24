package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// DetectContentType guesses the MIME type of a file from its name
func DetectContentType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	// Common file type mappings for cases where the system mime table is sparse
	commonTypes := map[string]string{
		".mp4":  "video/mp4",
		".mkv":  "video/x-matroska",
		".webm": "video/webm",
		".mov":  "video/quicktime",
		".avi":  "video/x-msvideo",
		".flv":  "video/x-flv",
		".wmv":  "video/x-ms-wmv",
		".m4v":  "video/x-m4v",
		".ts":   "video/mp2t",
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".flac": "audio/flac",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".srt":  "text/plain",
		".vtt":  "text/vtt",
		".zip":  "application/zip",
		".rar":  "application/x-rar-compressed",
	}

	if contentType, ok := commonTypes[ext]; ok {
		return contentType
	}

	return "application/octet-stream"
}

// GetFileCategory returns a general category for the content type
func GetFileCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case strings.HasPrefix(contentType, "text/"):
		return "text"
	case strings.Contains(contentType, "zip") || strings.Contains(contentType, "rar") || strings.Contains(contentType, "tar"):
		return "archive"
	default:
		return "other"
	}
}

// GetCategoryEmoji returns the icon shown next to a file of category
func GetCategoryEmoji(category string) string {
	switch category {
	case "image":
		return "🖼️"
	case "video":
		return "🎬"
	case "audio":
		return "🎵"
	case "text":
		return "📄"
	case "archive":
		return "📦"
	default:
		return "📁"
	}
}
