package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const serviceScript = "mediapipe_service.py"

// ErrServiceNotFound is returned when the MediaPipe service script cannot be located.
var ErrServiceNotFound = errors.New(serviceScript + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Frames go to the service as a 4-byte big-endian length followed by JPEG
// bytes; each frame gets exactly one JSON line back.
type MediaPipeDetector struct {
	config    Config
	script    string
	python    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	script := config.Script
	if script == "" {
		script = findServiceFile(serviceScript)
	}
	if script == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("detector script: %w", err)
	}

	python := config.Python
	if python == "" {
		python = findServiceFile("venv/bin/python")
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{config: config, script: script, python: python}, nil
}

// Detect sends one frame to the service and decodes its sub-signals.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (FrameSignal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return FrameSignal{}, nil
	}
	if err := d.ensureStarted(); err != nil {
		return FrameSignal{}, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return FrameSignal{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return FrameSignal{}, d.fail(fmt.Errorf("write length: %w", err))
	}
	if _, err := d.stdin.Write(data); err != nil {
		return FrameSignal{}, d.fail(fmt.Errorf("write data: %w", err))
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return FrameSignal{}, d.fail(fmt.Errorf("read response: %w", err))
	}

	sig, err := decodeResponse(line)
	if err != nil {
		return FrameSignal{}, err
	}

	d.resetIdleTimer()
	return sig, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	return nil
}

// fail tears the service down after a broken pipe so the next frame restarts it.
func (d *MediaPipeDetector) fail(err error) error {
	_ = d.shutdown()
	return err
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// findServiceFile looks for rel next to the working directory, the
// executable and ~/.mudra.
func findServiceFile(rel string) string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", rel),
		filepath.Join("..", "scripts", rel),
		rel,
		filepath.Join("..", rel),
	}
	if execDir != "" {
		candidates = append(candidates, filepath.Join(execDir, "scripts", rel), filepath.Join(execDir, rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mudra", "scripts", rel), filepath.Join(home, ".mudra", rel))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// serviceResponse is the JSON line written by the Python service.
type serviceResponse struct {
	Hands      []jsonHand          `json:"hands"`
	Pose       *jsonPose           `json:"pose"`
	Face       *FaceBox            `json:"face"`
	EyeOpen    *bool               `json:"eye_open"`
	Expression *ExpressionFeatures `json:"expression"`
	Error      string              `json:"error"`
}

type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

type jsonPose struct {
	Points []PosePoint `json:"points"`
	Score  float64     `json:"score"`
}

func decodeResponse(line []byte) (FrameSignal, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return FrameSignal{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return FrameSignal{}, fmt.Errorf("mediapipe service: %s", resp.Error)
	}

	sig := FrameSignal{
		Face:       resp.Face,
		EyeOpen:    resp.EyeOpen,
		Expression: resp.Expression,
	}

	for _, h := range resp.Hands {
		// A partial landmark set cannot be classified.
		if len(h.Points) < NumLandmarks {
			continue
		}
		hand := HandLandmarks{Handedness: h.Handedness, Score: h.Score}
		copy(hand.Points[:], h.Points)
		sig.Hands = append(sig.Hands, hand)
	}

	if resp.Pose != nil && len(resp.Pose.Points) > PoseRightWrist {
		pose := &PoseLandmarks{Score: resp.Pose.Score}
		copy(pose.Points[:], resp.Pose.Points)
		sig.Pose = pose
	}
	return sig, nil
}
