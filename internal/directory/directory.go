// Package directory is the in-memory view of the remote folder tree. Every
// call re-fetches from the API; nothing is cached between navigation steps.
package directory

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/filemoon"
	"github.com/HaiFongPan/fmbot/internal/utils"
)

// DefaultPageSize is used when a non-positive page size is configured
const DefaultPageSize = 10

// API is the subset of the filemoon client the directory needs
type API interface {
	ListFolders(ctx context.Context) ([]filemoon.Folder, error)
	ListFiles(ctx context.Context, folderID int64) ([]filemoon.File, error)
}

// Page is a window over the full, sorted folder list
type Page struct {
	Folders    []filemoon.Folder
	Number     int
	TotalCount int
	PageSize   int
}

// TotalPages returns the number of pages needed for TotalCount folders
func (p Page) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.TotalCount + p.PageSize - 1) / p.PageSize
}

// HasPrev reports whether a previous page exists
func (p Page) HasPrev() bool {
	return p.Number > 1
}

// HasNext reports whether more folders follow this page
func (p Page) HasNext() bool {
	return p.TotalCount > p.Number*p.PageSize
}

// Directory fetches folders and files and shapes them for presentation
type Directory struct {
	api      API
	pageSize int
	links    *utils.LinkRewriter
}

// New creates a Directory. links may be nil to keep file links as returned.
func New(api API, pageSize int, links *utils.LinkRewriter) *Directory {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Directory{
		api:      api,
		pageSize: pageSize,
		links:    links,
	}
}

// PageSize returns the configured folder page size
func (d *Directory) PageSize() int {
	return d.pageSize
}

// FetchAllFolders returns every folder, newest first. API failures are
// logged and reported as an empty list, so callers cannot tell "no folders"
// from "fetch failed".
func (d *Directory) FetchAllFolders(ctx context.Context) []filemoon.Folder {
	folders, err := d.api.ListFolders(ctx)
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("Error fetching folders")
		return []filemoon.Folder{}
	}

	return SortFolders(folders)
}

// SortFolders returns a copy of folders ordered newest first; folders
// created at the same time keep their API order
func SortFolders(folders []filemoon.Folder) []filemoon.Folder {
	sorted := make([]filemoon.Folder, len(folders))
	copy(sorted, folders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

// FetchFolderPage returns page n (1-based) of the sorted folder list. Pages
// past the end are empty.
func (d *Directory) FetchFolderPage(ctx context.Context, n int) Page {
	if n < 1 {
		n = 1
	}

	folders := d.FetchAllFolders(ctx)
	return Paginate(folders, n, d.pageSize)
}

// Paginate slices folders into page n of size pageSize
func Paginate(folders []filemoon.Folder, n, pageSize int) Page {
	if n < 1 {
		n = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	page := Page{
		Folders:    []filemoon.Folder{},
		Number:     n,
		TotalCount: len(folders),
		PageSize:   pageSize,
	}

	start := (n - 1) * pageSize
	if start >= len(folders) {
		return page
	}
	end := start + pageSize
	if end > len(folders) {
		end = len(folders)
	}
	page.Folders = folders[start:end]
	return page
}

// FindFolder looks a folder up in a fresh listing
func (d *Directory) FindFolder(ctx context.Context, folderID int64) (filemoon.Folder, bool) {
	for _, folder := range d.FetchAllFolders(ctx) {
		if folder.ID == folderID {
			return folder, true
		}
	}
	return filemoon.Folder{}, false
}

// FetchFiles returns the files of a folder sorted by title with display
// links. API failures are logged and reported as an empty list.
func (d *Directory) FetchFiles(ctx context.Context, folderID int64) []filemoon.File {
	files, err := d.api.ListFiles(ctx, folderID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"folder_id": folderID, "error": err}).Error("Error fetching files")
		return []filemoon.File{}
	}
	return d.ShapeFiles(files)
}

// ShapeFiles rewrites file links for display and sorts files by title
func (d *Directory) ShapeFiles(files []filemoon.File) []filemoon.File {
	result := make([]filemoon.File, len(files))
	for i, file := range files {
		result[i] = filemoon.File{
			Title: file.Title,
			Link:  d.links.Rewrite(file.Link),
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Title < result[j].Title
	})
	return result
}
