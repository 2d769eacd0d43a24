package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind identifies what an inline button does
type ActionKind int

const (
	ActionTutorial ActionKind = iota
	ActionAccountInfo
	ActionAllFolders
	ActionPage
	ActionPageInfo
	ActionTotalFolders
	ActionFolder
	ActionViewFiles
	ActionEditName
	ActionDelete
	ActionRemoteUpload
	ActionSendLinks
	ActionBackToFolders
	ActionMainMenu
)

// Action is the decoded form of a button's action string
type Action struct {
	Kind     ActionKind
	Page     int
	FolderID int64
}

var fixedActions = map[string]ActionKind{
	"show_tutorial":   ActionTutorial,
	"account_info":    ActionAccountInfo,
	"all_folders":     ActionAllFolders,
	"page_no":         ActionPageInfo,
	"total_folders":   ActionTotalFolders,
	"back_to_folders": ActionBackToFolders,
	"main_menu":       ActionMainMenu,
}

// longer prefixes first so "view_files_" never matches a shorter entry
var folderPrefixes = []struct {
	prefix string
	kind   ActionKind
}{
	{"remote_upload_", ActionRemoteUpload},
	{"view_files_", ActionViewFiles},
	{"send_links_", ActionSendLinks},
	{"edit_name_", ActionEditName},
	{"delete_", ActionDelete},
	{"folder_", ActionFolder},
}

// ParseAction decodes an action string such as "folder_42" or "page_3"
func ParseAction(s string) (Action, error) {
	if kind, ok := fixedActions[s]; ok {
		return Action{Kind: kind}, nil
	}

	if rest, ok := strings.CutPrefix(s, "page_"); ok {
		page, err := strconv.Atoi(rest)
		if err != nil || page < 1 {
			return Action{}, fmt.Errorf("invalid page in action %q", s)
		}
		return Action{Kind: ActionPage, Page: page}, nil
	}

	for _, p := range folderPrefixes {
		rest, ok := strings.CutPrefix(s, p.prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id < 0 {
			return Action{}, fmt.Errorf("invalid folder id in action %q", s)
		}
		return Action{Kind: p.kind, FolderID: id}, nil
	}

	return Action{}, fmt.Errorf("unknown action %q", s)
}

// String encodes the action; ParseAction(a.String()) yields a again
func (a Action) String() string {
	switch a.Kind {
	case ActionTutorial:
		return "show_tutorial"
	case ActionAccountInfo:
		return "account_info"
	case ActionAllFolders:
		return "all_folders"
	case ActionPage:
		return fmt.Sprintf("page_%d", a.Page)
	case ActionPageInfo:
		return "page_no"
	case ActionTotalFolders:
		return "total_folders"
	case ActionFolder:
		return fmt.Sprintf("folder_%d", a.FolderID)
	case ActionViewFiles:
		return fmt.Sprintf("view_files_%d", a.FolderID)
	case ActionEditName:
		return fmt.Sprintf("edit_name_%d", a.FolderID)
	case ActionDelete:
		return fmt.Sprintf("delete_%d", a.FolderID)
	case ActionRemoteUpload:
		return fmt.Sprintf("remote_upload_%d", a.FolderID)
	case ActionSendLinks:
		return fmt.Sprintf("send_links_%d", a.FolderID)
	case ActionBackToFolders:
		return "back_to_folders"
	case ActionMainMenu:
		return "main_menu"
	default:
		return ""
	}
}

func pageAction(page int) string {
	return Action{Kind: ActionPage, Page: page}.String()
}

func folderAction(kind ActionKind, folderID int64) string {
	return Action{Kind: kind, FolderID: folderID}.String()
}
