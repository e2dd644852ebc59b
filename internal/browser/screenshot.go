package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// ScreenshotDebugger saves full-page screenshots when a page misbehaves.
type ScreenshotDebugger struct {
	outputDir string
	log       *zap.Logger
}

func NewScreenshotDebugger(dir string, log *zap.Logger) *ScreenshotDebugger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScreenshotDebugger{outputDir: dir, log: log}
}

// FileName is the screenshot path for name at t.
func (s *ScreenshotDebugger) FileName(name string, t time.Time) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, t.Format("2006-01-02_15-04-05")))
}

func (s *ScreenshotDebugger) CaptureAndLog(page playwright.Page, name, message string) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := s.FileName(name, time.Now())
	s.log.Warn(message, zap.String("screenshot", path))

	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		s.log.Warn("failed to capture screenshot", zap.Error(err))
		return "", err
	}
	return path, nil
}
