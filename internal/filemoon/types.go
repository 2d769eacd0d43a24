package filemoon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StatusOK is the envelope status reported for successful calls
const StatusOK = 200

// creationDateLayout is the timestamp format used by folder/list
const creationDateLayout = "2006-01-02 15:04:05"

// envelope is the common wrapper around every API response
type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

// FlexInt decodes integers that the API sometimes sends as JSON strings
type FlexInt int64

// UnmarshalJSON accepts 12, "12", "" and null
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*n = FlexInt(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = FlexInt(f)
	return nil
}

// Timestamp decodes the API's "YYYY-MM-DD hh:mm:ss" dates, leaving the zero
// time for values it cannot parse
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{creationDateLayout, time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// AccountInfo represents the account/info result
type AccountInfo struct {
	Login         string  `json:"login"`
	Email         string  `json:"email"`
	Balance       string  `json:"balance"`
	FilesTotal    FlexInt `json:"files_total"`
	StorageUsed   FlexInt `json:"storage_used"`
	StorageLeft   string  `json:"storage_left"`
	Premium       bool    `json:"premium"`
	PremiumExpire string  `json:"premium_expire"`
}

// UnmarshalJSON tolerates numeric balance/storage_left/premium values
func (a *AccountInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Login         string          `json:"login"`
		Email         string          `json:"email"`
		Balance       json.RawMessage `json:"balance"`
		FilesTotal    FlexInt         `json:"files_total"`
		StorageUsed   FlexInt         `json:"storage_used"`
		StorageLeft   json.RawMessage `json:"storage_left"`
		Premium       json.RawMessage `json:"premium"`
		PremiumExpire string          `json:"premium_expire"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Login = raw.Login
	a.Email = raw.Email
	a.Balance = rawText(raw.Balance)
	a.FilesTotal = raw.FilesTotal
	a.StorageUsed = raw.StorageUsed
	a.StorageLeft = rawText(raw.StorageLeft)
	a.PremiumExpire = raw.PremiumExpire

	switch p := strings.Trim(rawText(raw.Premium), " "); p {
	case "", "0", "false":
		a.Premium = false
	default:
		a.Premium = true
	}
	return nil
}

// rawText renders a raw JSON scalar as plain text
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Folder represents one entry of folder/list
type Folder struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// UnmarshalJSON maps {fld_id, name, creation_date} onto Folder
func (f *Folder) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           FlexInt   `json:"fld_id"`
		Name         string    `json:"name"`
		CreationDate Timestamp `json:"creation_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.ID = int64(raw.ID)
	f.Name = raw.Name
	f.CreatedAt = raw.CreationDate.Time
	return nil
}

// File represents one entry of file/list
type File struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// StatusRecord is one remote upload status entry
type StatusRecord struct {
	Progress FlexInt `json:"progress"`
	Status   string  `json:"status"`
}

// UploadStatus is the remote/status result together with the envelope
// message, which decides whether a COMPLETED record counts as success
type UploadStatus struct {
	Msg     string
	Records []StatusRecord
}

type folderListResult struct {
	Folders []Folder `json:"folders"`
}

type fileListResult struct {
	Files []File `json:"files"`
}

type remoteAddResult struct {
	FileCode string `json:"filecode"`
}
