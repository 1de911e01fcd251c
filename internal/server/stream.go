package server

import (
	"fmt"
	"net/http"
	"time"
)

const streamInterval = 66 * time.Millisecond // ~15 FPS

// FrameSource provides the most recent camera frame as JPEG.
type FrameSource interface {
	LatestJPEG() ([]byte, bool)
}

// StreamHandler serves MJPEG frames from a FrameSource.
type StreamHandler struct {
	frames FrameSource
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		if buf, ok := h.frames.LatestJPEG(); ok {
			if err := writePart(w, buf); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, buf []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(buf)); err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
