package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInput(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		kind    EventKind
		command string
		args    string
	}{
		{"plain command", "/start", EventCommand, "start", ""},
		{"command with args", "/create  My Folder ", EventCommand, "create", "My Folder"},
		{"bot suffix", "/allfld@fmbot", EventCommand, "allfld", ""},
		{"upper case", "/STATUS", EventCommand, "status", ""},
		{"free text", "new name", EventText, "", ""},
		{"lone slash", "/", EventText, "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev := ParseInput("c1", tc.input)
			assert.Equal(t, tc.kind, ev.Kind)
			assert.Equal(t, ConversationID("c1"), ev.Conversation)
			assert.Equal(t, tc.command, ev.Command)
			assert.Equal(t, tc.args, ev.Args)
			if tc.kind == EventText {
				assert.Equal(t, tc.input, ev.Text)
			}
		})
	}
}

func TestKeyboardButtons(t *testing.T) {
	kb := Keyboard{
		{{Label: "a", Action: "x"}},
		{{Label: "b", URL: "https://example.com"}, {Label: "c", Action: "y"}},
	}

	buttons := kb.Buttons()
	assert.Len(t, buttons, 3)
	assert.Equal(t, "b", buttons[1].Label)
	assert.True(t, buttons[1].IsLink())
	assert.False(t, buttons[2].IsLink())
}
