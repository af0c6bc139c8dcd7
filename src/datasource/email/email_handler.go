package email

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"AirQuality/src/datasource/file"
	"AirQuality/src/storage"
	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
)

var datasetExts = []string{".csv", ".xlsx"}

// AttachmentHandler saves dataset attachments (.csv, .xlsx) of matching mails
// into DataDir, once per UID. The directory monitor picks the files up.
type AttachmentHandler struct {
	TargetSubject string
	DataDir       string
	Encoding      string // of CSV attachments
	Logger        *storage.Logger
	processedUIDs map[uint32]bool
	mu            sync.RWMutex
}

func NewAttachmentHandler(subject, dataDir string, logger *storage.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		Logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle writes the dataset attachments of e and returns the saved paths.
func (h *AttachmentHandler) Handle(e *Email) ([]string, error) {
	if e == nil || h.IsProcessed(e.UID) {
		return nil, nil
	}
	if !strings.Contains(e.Subject, h.TargetSubject) {
		return nil, nil
	}

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var saved []string
	for _, a := range e.Attachments {
		name := filepath.Base(a.Filename)
		if !utils.Contains(datasetExts, strings.ToLower(filepath.Ext(name))) {
			continue
		}
		if err := h.validate(name, a.Content); err != nil {
			if h.Logger != nil {
				h.Logger.Warning(fmt.Sprintf("skipped attachment %s from %q: %v", name, e.Subject, err))
			}
			continue
		}

		// write then rename so the monitor never sees a partial file
		path := filepath.Join(h.DataDir, name)
		tmp := path + ".part"
		if err := os.WriteFile(tmp, a.Content, 0644); err != nil {
			return saved, fmt.Errorf("save attachment %s: %w", name, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return saved, fmt.Errorf("save attachment %s: %w", name, err)
		}
		saved = append(saved, path)
		if h.Logger != nil {
			h.Logger.Info(fmt.Sprintf("saved attachment %s from %q (%s)", name, e.Subject, e.Date.Format("2006-01-02 15:04:05")))
		}
	}

	if len(saved) > 0 {
		h.markAsProcessed(e.UID)
	}
	return saved, nil
}

// validate checks that content loads as a dataset with a date column, so a
// broken attachment never replaces a good file.
func (h *AttachmentHandler) validate(name string, content []byte) error {
	var (
		df  dataframe.DataFrame
		err error
	)
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		df, err = file.ReadXLSXBytes(content, "")
	} else {
		df, err = file.ReadCSV(bytes.NewReader(content), h.Encoding)
	}
	if err != nil {
		return err
	}
	if !utils.Contains(df.Names(), "date") {
		return fmt.Errorf("no date column")
	}
	return nil
}
