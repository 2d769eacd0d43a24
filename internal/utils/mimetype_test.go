package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFileCategory(t *testing.T) {
	assert.Equal(t, "video", GetFileCategory(DetectContentType("movie.mkv")))
	assert.Equal(t, "video", GetFileCategory(DetectContentType("clip.MP4")))
	assert.Equal(t, "other", GetFileCategory(DetectContentType("noext")))
	assert.Equal(t, "🎬", GetCategoryEmoji("video"))
}
