package document

import (
	"os"
	"strings"

	"github.com/lu4p/cat"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// extractOffice reads word-processing documents as plain text only. The cat
// package dispatches on the file extension, so the bytes go through a temp file.
func (e *Extractor) extractOffice(doc entity.SourceDocument, format constants.DocumentFormat) (*entity.DocumentLayout, error) {
	tmp, err := os.CreateTemp(e.cfg.TempDir, "debitsheet-*."+strings.ToLower(string(format)))
	if err != nil {
		return nil, unreadable(doc.Name, "create temp file", err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("document.office.cleanup_failed", "path", path, "error", err)
		}
	}()

	if _, err := tmp.Write(doc.Data); err != nil {
		_ = tmp.Close()
		return nil, unreadable(doc.Name, "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, unreadable(doc.Name, "close temp file", err)
	}

	text, err := cat.File(path)
	if err != nil {
		return nil, unreadable(doc.Name, "read "+strings.ToLower(string(format)), err)
	}
	return &entity.DocumentLayout{PlainText: text}, nil
}
