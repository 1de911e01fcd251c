package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// run ticks at the camera frame rate until stopCh is closed.
func (a *App) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	fps := a.cfg.Camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.step()
		}
	}
}

// step captures one frame and, on every Nth frame, runs detection and the
// pipeline. A detector error still advances the pipeline with an empty
// signal so confidences keep decaying.
func (a *App) step() {
	frame, err := a.cfg.Camera.ReadFrame()
	if err != nil {
		a.logger.Debug("read frame", zap.Error(err))
		return
	}
	defer frame.Close()

	a.captured++
	if a.captured%int64(a.cfg.ProcessEveryN) != 0 {
		return
	}

	if jpeg, err := capture.EncodeJPEG(frame); err == nil {
		a.latestJPEG.Store(&jpeg)
	}

	if !a.IsEnabled() {
		return
	}

	sig, err := a.cfg.Detector.Detect(frame)
	if err != nil {
		a.logger.Warn("detect", zap.Error(err))
		sig = detector.FrameSignal{}
	}

	a.frameIndex++
	sig.Index = a.frameIndex
	sig.Timestamp = a.now()

	res := a.cfg.Pipeline.Process(sig)
	for _, c := range res.Confirmed {
		a.logger.Debug("confirmed",
			zap.Stringer("channel", c.Channel),
			zap.String("label", c.Label),
			zap.Float64("confidence", c.Confidence),
		)
	}
}
