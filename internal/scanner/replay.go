package scanner

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/Sandr0x00/mijia/internal/logging"
	"github.com/Sandr0x00/mijia/internal/mijia"
)

// Replay reads broadcasts from a capture, one per line. Blank lines and
// lines starting with # are skipped; unparsable lines are logged and skipped.
type Replay struct {
	r      io.Reader
	logger *slog.Logger
}

// NewReplay creates a replay source reading from r.
func NewReplay(r io.Reader, logger *slog.Logger) *Replay {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Replay{r: r, logger: logger}
}

// Run feeds every line of the capture to handle in order.
func (s *Replay) Run(ctx context.Context, handle Handler) error {
	lines := bufio.NewScanner(s.r)
	lineNo := 0
	for lines.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++

		line := strings.TrimSpace(lines.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		adv, err := mijia.ParseAdvertisement(line)
		if err != nil {
			s.logger.Warn("skipping capture line", "line", lineNo, "error", err)
			continue
		}
		handle(adv)
	}
	return lines.Err()
}

var _ Source = (*Replay)(nil)
