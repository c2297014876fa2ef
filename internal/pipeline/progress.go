package pipeline

import (
	"encoding/json"
	"os"
	"time"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// progressWriter overwrites the progress artifact with best-effort writes.
// A failed write never aborts a run; the artifact only feeds status
// reporting.
type progressWriter struct {
	path string
}

func (w *progressWriter) write(p types.Progress) {
	p.Timestamp = float64(time.Now().UnixNano()) / 1e9
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = os.WriteFile(w.path, data, 0o644)
}
