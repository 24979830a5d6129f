package file

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// ErrAttachmentTooLarge is returned when a file exceeds the configured cap.
var ErrAttachmentTooLarge = errors.New("attachment too large")

// Attachment is a file staged for the next prompt.
type Attachment struct {
	Name string `json:"name"`
	// Human readable size, e.g. "1.2 MiB".
	SizeLabel string `json:"size"`
	MimeType  string `json:"type"`
	Data      []byte `json:"-"`
}

// IsText returns true if the attachment can be inlined as text.
func (a *Attachment) IsText() bool {
	return strings.HasPrefix(a.MimeType, "text/") ||
		strings.HasPrefix(a.MimeType, "application/json") ||
		strings.HasPrefix(a.MimeType, "application/xml")
}

// DataURL encodes the attachment as a base64 data url.
func (a *Attachment) DataURL() string {
	return "data:" + a.MimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// LoadAttachment reads a file from disk, rejecting anything larger than maxBytes.
func LoadAttachment(path string, maxBytes int64) (*Attachment, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("getting os stats: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%s is %s (max %s): %w", filepath.Base(path),
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(maxBytes)), ErrAttachmentTooLarge)
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	mimeType := mimetype.Detect(bytes).String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return &Attachment{
		Name:      filepath.Base(path),
		SizeLabel: humanize.IBytes(uint64(len(bytes))),
		MimeType:  mimeType,
		Data:      bytes,
	}, nil
}

// LooksLikePath returns true if the text is a single existing file path,
// which is what terminals paste when a file is dropped on them.
func LooksLikePath(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `'"`)
	text = strings.ReplaceAll(text, `\ `, " ")
	if text == "" || strings.ContainsRune(text, '\n') {
		return "", false
	}
	if !strings.HasPrefix(text, "/") && !strings.HasPrefix(text, "~/") {
		return "", false
	}
	path, err := ExpandPath(text)
	if err != nil {
		return "", false
	}
	exists, err := Exists(path)
	if err != nil || !exists {
		return "", false
	}
	return path, true
}

// ExpandPath expands a path to avoid `~`.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home dir: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// CreateDirectoryIfNotExist creates a directory if it doesn't already exist.
func CreateDirectoryIfNotExist(directory string) error {
	info, err := os.Stat(directory)
	if err == nil && info.IsDir() {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checking directory existence: %w", err)
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return nil
}

// Exists returns true if the specified file exists.
func Exists(filePath string) (bool, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking file existence: %w", err)
	}
	return !info.IsDir(), nil
}
