package bot

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/directory"
	"github.com/HaiFongPan/fmbot/internal/filemoon"
)

const (
	welcomeText = "Wᴇʟᴄᴏᴍᴇ ᴛᴏ ᴛʜᴇ FɪʟᴇMᴏᴏɴ Bᴏᴛ! Usᴇ ᴛʜᴇ ʙᴜᴛᴛᴏɴs ʙᴇʟᴏᴡ ᴛᴏ ɢᴇᴛ sᴛᴀʀᴛᴇᴅ:"

	tutorialText = "📚 *Tutorial:*\n\n" +
		"1. Use the `/start` command to view the main menu.\n" +
		"2. Use the '📖 Tutorial' button to read this tutorial again.\n" +
		"3. Use the 'ℹ️ Account Info' button or /account_info command to view your account information.\n" +
		"4. Use the '📁 All Folders' button or /allfld command to view and manage your folders.\n" +
		"5. To create a new folder, use the command `/create <folder_name>`.\n" +
		"6. To upload files remotely, select a folder and use the 'Remote Upload' option.\n" +
		"7. To view files in a folder, select a folder and use the 'View Files' option.\n" +
		"8. To delete or rename folders, use the respective options in the folder actions menu.\n" +
		"9. Use /status to check that the bot is online."

	selectFolderText  = "Select a folder to manage:"
	noFoldersText     = "No folders found or error fetching folders."
	noFilesText       = "No files found or error fetching files."
	folderNotFound    = "Folder not found."
	linksSentText     = "Links sent."
	renamePromptText  = "Send the new name for the folder:"
	uploadPromptText  = "Send the URL for remote upload:"
	createUsageText   = "Please provide a folder name. Usage: /create <folder_name>"
	emptyNameText     = "Folder name cannot be empty."
	invalidURLText    = "Please send a valid URL (for example https://example.com/video.mp4)."
	pingingText       = "Pinging..."
	unknownCommandFmt = "Unknown command /%s. Use /start to open the main menu."

	accountDivider = "───────────────────────────"
)

func mainMenuKeyboard() chat.Keyboard {
	return chat.Keyboard{
		{{Label: "📖 Tutorial", Action: Action{Kind: ActionTutorial}.String()}},
		{{Label: "ℹ️ Account Info", Action: Action{Kind: ActionAccountInfo}.String()}},
		{{Label: "📁 All Folders", Action: Action{Kind: ActionAllFolders}.String()}},
	}
}

func backToMenuKeyboard() chat.Keyboard {
	return chat.Keyboard{
		{{Label: "🏠 Main Menu", Action: Action{Kind: ActionMainMenu}.String()}},
	}
}

// folderListKeyboard renders one button per folder, the pagination row and
// the total row
func folderListKeyboard(page directory.Page) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(page.Folders)+2)
	for _, folder := range page.Folders {
		kb = append(kb, []chat.Button{{
			Label:  fmt.Sprintf("%s (ID: %d)", folder.Name, folder.ID),
			Action: folderAction(ActionFolder, folder.ID),
		}})
	}

	var pagination []chat.Button
	if page.HasPrev() {
		pagination = append(pagination, chat.Button{Label: "< Prev", Action: pageAction(page.Number - 1)})
	}
	pagination = append(pagination, chat.Button{
		Label:  fmt.Sprintf("%d | %d", page.Number, page.TotalPages()),
		Action: Action{Kind: ActionPageInfo}.String(),
	})
	if page.HasNext() {
		pagination = append(pagination, chat.Button{Label: "Next >", Action: pageAction(page.Number + 1)})
	}

	kb = append(kb, pagination)
	kb = append(kb, []chat.Button{{
		Label:  fmt.Sprintf("Total Folders: %d", page.TotalCount),
		Action: Action{Kind: ActionTotalFolders}.String(),
	}})
	return kb
}

func folderActionsKeyboard(folderID int64) chat.Keyboard {
	return chat.Keyboard{
		{{Label: "View Files", Action: folderAction(ActionViewFiles, folderID)}},
		{{Label: "Edit Folder Name", Action: folderAction(ActionEditName, folderID)}},
		{{Label: "Delete Folder", Action: folderAction(ActionDelete, folderID)}},
		{{Label: "Remote Upload", Action: folderAction(ActionRemoteUpload, folderID)}},
		{{Label: "Back to Folders", Action: Action{Kind: ActionBackToFolders}.String()}},
	}
}

func folderNotFoundKeyboard() chat.Keyboard {
	return chat.Keyboard{
		{{Label: "Back to Folders", Action: Action{Kind: ActionBackToFolders}.String()}},
	}
}

func backToFolderKeyboard(folderID int64) chat.Keyboard {
	return chat.Keyboard{
		{{Label: "Back to Folder Actions", Action: folderAction(ActionFolder, folderID)}},
	}
}

func fileListKeyboard(folderID int64, files []filemoon.File) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(files)+2)
	for _, file := range files {
		kb = append(kb, []chat.Button{{Label: file.Title, URL: file.Link}})
	}
	kb = append(kb, []chat.Button{{Label: "Send All Links", Action: folderAction(ActionSendLinks, folderID)}})
	kb = append(kb, backToFolderKeyboard(folderID)...)
	return kb
}

func folderActionsText(folder filemoon.Folder) string {
	return fmt.Sprintf("Actions for folder '%s' (ID: %d):", folder.Name, folder.ID)
}

func filesText(folderID int64) string {
	return fmt.Sprintf("Files in folder ID %d:", folderID)
}

func linksText(folderID int64, files []filemoon.File) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are all the file links in folder ID %d:\n\n", folderID)
	for i, file := range files {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %s", file.Title, file.Link)
	}
	return sb.String()
}

func accountText(info *filemoon.AccountInfo) string {
	premium := "No"
	if info.Premium {
		premium = "Yes"
	}

	lines := []string{
		"📋 ＡＣＣＯＵＮＴ ＩＮＦＯ\n",
		accountDivider,
		"👤 Usᴇʀɴᴀᴍᴇ: \n• " + info.Login,
		accountDivider,
		"📧 Eᴍᴀɪʟ: \n• " + info.Email,
		accountDivider,
		"💰 Bᴀʟᴀɴᴄᴇ: \n• " + info.Balance + " $",
		accountDivider,
		"📁 Tᴏᴛᴀʟ Fɪʟᴇs:\n• " + humanize.Comma(int64(info.FilesTotal)),
		accountDivider,
		"💾 Sᴛᴏʀᴀɢᴇ Usᴇᴅ: \n• " + humanize.IBytes(uint64(max(int64(info.StorageUsed), 0))),
		accountDivider,
		"🗄️ Sᴛᴏʀᴀɢᴇ Lᴇғᴛ: \n• " + info.StorageLeft,
		accountDivider,
		"⭐ Pʀᴇᴍɪᴜᴍ: \n• " + premium,
		accountDivider,
		"📅 Pʀᴇᴍɪᴜᴍ Exᴘɪʀʏ: \n• " + info.PremiumExpire,
		accountDivider,
	}
	return strings.Join(lines, "\n")
}
