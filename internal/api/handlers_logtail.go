package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	tailWriteWait = 10 * time.Second

	// Poll interval for new run log bytes
	tailPollPeriod = time.Second
)

var tailUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is same-host tooling; CORS is handled at the HTTP layer
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleJobLogTail upgrades to a WebSocket and streams run log appends
// until the client disconnects. Useful while a real model run is in
// flight, since the generate step can take minutes.
func (s *APIServer) handleJobLogTail(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r.URL.Path, "/log/tail")
	if !ok {
		return
	}

	logPath := filepath.Join(s.designer.JobsDir(), jobID, "logs", "run.log")
	if _, err := os.Stat(filepath.Dir(logPath)); err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}

	conn, err := tailUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(fmt.Sprintf("WebSocket upgrade failed: %v", err), "api")
		return
	}
	defer conn.Close()

	s.logger.Debug(fmt.Sprintf("Log tail started for job %s", jobID), "api")

	// Reads are only expected to deliver the close frame
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	var offset int64
	ticker := time.NewTicker(tailPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			chunk, newOffset, err := readFrom(logPath, offset)
			if err != nil {
				continue
			}
			offset = newOffset
			if len(chunk) == 0 {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(tailWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, chunk); err != nil {
				s.logger.Debug(fmt.Sprintf("Log tail ended for job %s: %v", jobID, err), "api")
				return
			}
		}
	}
}

// readFrom returns the bytes appended to path since offset
func readFrom(path string, offset int64) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, err
	}
	if info.Size() <= offset {
		return nil, offset, nil
	}

	if _, err := f.Seek(offset, 0); err != nil {
		return nil, offset, err
	}
	chunk := make([]byte, info.Size()-offset)
	n, err := f.Read(chunk)
	if err != nil {
		return nil, offset, err
	}
	return chunk[:n], offset + int64(n), nil
}
