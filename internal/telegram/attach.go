package telegram

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	tele "gopkg.in/telebot.v4"
)

// AttachmentSaver persists incoming attachment bytes under a local uploads
// directory. The conversation engine only ever sees the returned descriptor,
// never the bytes.
type AttachmentSaver struct {
	bot *tele.Bot
	dir string
}

// NewAttachmentSaver creates the uploads directory if needed.
func NewAttachmentSaver(bot *tele.Bot, dir string) (*AttachmentSaver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &AttachmentSaver{bot: bot, dir: dir}, nil
}

// SaveDocument stores the document and returns its original file name, which
// becomes the "document:<name>" descriptor.
func (s *AttachmentSaver) SaveDocument(doc *tele.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("nil document")
	}
	if err := s.download(&doc.File, filepath.Ext(doc.FileName)); err != nil {
		return doc.FileName, err
	}
	return doc.FileName, nil
}

// SavePhoto stores the photo bytes.
func (s *AttachmentSaver) SavePhoto(photo *tele.Photo) error {
	if photo == nil {
		return fmt.Errorf("nil photo")
	}
	return s.download(&photo.File, ".jpg")
}

func (s *AttachmentSaver) download(file *tele.File, ext string) error {
	rc, err := s.bot.File(file)
	if err != nil {
		return fmt.Errorf("fetch file: %w", err)
	}
	defer rc.Close()

	// Local names are random to survive duplicate uploads.
	path := filepath.Join(s.dir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, rc); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
