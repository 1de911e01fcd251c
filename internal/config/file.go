package config

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/expression"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/smoothing"
)

// Duration reads and writes Go duration strings such as "1.5s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type rampFile struct {
	Low  float64 `toml:"low"`
	High float64 `toml:"high"`
}

type smoothingFile struct {
	MinHoldFrames *int     `toml:"min_hold_frames,omitempty"`
	Ceiling       *float64 `toml:"ceiling,omitempty"`
	Floor         *float64 `toml:"floor,omitempty"`
	Decay         *float64 `toml:"decay,omitempty"`
	HistorySize   *int     `toml:"history_size,omitempty"`
}

// fileConfig mirrors the TOML layout. Nil fields keep the current value.
type fileConfig struct {
	Camera struct {
		Device        *int `toml:"device,omitempty"`
		Width         *int `toml:"width,omitempty"`
		Height        *int `toml:"height,omitempty"`
		FPS           *int `toml:"fps,omitempty"`
		ProcessEveryN *int `toml:"process_every_n,omitempty"`
	} `toml:"camera"`

	Detector struct {
		Python                *string   `toml:"python,omitempty"`
		Script                *string   `toml:"script,omitempty"`
		MaxHands              *int      `toml:"max_hands,omitempty"`
		MinConfidence         *float64  `toml:"min_confidence,omitempty"`
		MinTrackingConfidence *float64  `toml:"min_tracking_confidence,omitempty"`
		IdleTimeout           *Duration `toml:"idle_timeout,omitempty"`
	} `toml:"detector"`

	Gesture struct {
		LandmarkFloor       *float64           `toml:"landmark_floor,omitempty"`
		FingerThresholds    []float64          `toml:"finger_thresholds,omitempty"`
		Softness            *float64           `toml:"softness,omitempty"`
		MatchThreshold      *float64           `toml:"match_threshold,omitempty"`
		MarginSaturation    *float64           `toml:"margin_saturation,omitempty"`
		LabelFloors         map[string]float64 `toml:"label_floors,omitempty"`
		PoseVisibilityFloor *float64           `toml:"pose_visibility_floor,omitempty"`
		RaiseThreshold      *float64           `toml:"raise_threshold,omitempty"`
		WaveWindow          *int               `toml:"wave_window,omitempty"`
		WaveMinSamples      *int               `toml:"wave_min_samples,omitempty"`
		WaveMinReversals    *int               `toml:"wave_min_reversals,omitempty"`
		WaveMinStdDev       *float64           `toml:"wave_min_stddev,omitempty"`
		WaveJitter          *float64           `toml:"wave_jitter,omitempty"`
	} `toml:"gesture"`

	Expression struct {
		HappyMouth         *rampFile `toml:"happy_mouth,omitempty"`
		SadMouth           *rampFile `toml:"sad_mouth,omitempty"`
		SadEyes            *rampFile `toml:"sad_eyes,omitempty"`
		AngryBrow          *rampFile `toml:"angry_brow,omitempty"`
		SurprisedEyes      *rampFile `toml:"surprised_eyes,omitempty"`
		SurprisedBrow      *rampFile `toml:"surprised_brow,omitempty"`
		SurprisedEyeWeight *float64  `toml:"surprised_eye_weight,omitempty"`
		Floor              *float64  `toml:"floor,omitempty"`
		NeutralBaseline    *float64  `toml:"neutral_baseline,omitempty"`
		NeutralWeight      *float64  `toml:"neutral_weight,omitempty"`
		FacePresence       *float64  `toml:"face_presence,omitempty"`
	} `toml:"expression"`

	Blink struct {
		MinClosedFrames *int      `toml:"min_closed_frames,omitempty"`
		MaxClosure      *Duration `toml:"max_closure,omitempty"`
		BurstWindow     *Duration `toml:"burst_window,omitempty"`
		MaxBlinks       *int      `toml:"max_blinks,omitempty"`
	} `toml:"blink"`

	Smoothing map[string]smoothingFile `toml:"smoothing,omitempty"`

	Dispatch struct {
		BlinkCooldown      *Duration `toml:"blink_cooldown,omitempty"`
		GestureCooldown    *Duration `toml:"gesture_cooldown,omitempty"`
		ExpressionCooldown *Duration `toml:"expression_cooldown,omitempty"`
		BlinkScope         *string   `toml:"blink_scope,omitempty"`
		GestureScope       *string   `toml:"gesture_scope,omitempty"`
		ExpressionScope    *string   `toml:"expression_scope,omitempty"`
		HistorySize        *int      `toml:"history_size,omitempty"`
	} `toml:"dispatch"`

	Actions struct {
		PluginDir               *string   `toml:"plugin_dir,omitempty"`
		Timeout                 *Duration `toml:"timeout,omitempty"`
		QueueSize               *int      `toml:"queue_size,omitempty"`
		MinExpressionConfidence *float64  `toml:"min_expression_confidence,omitempty"`
	} `toml:"actions"`

	Server struct {
		Addr              *string   `toml:"addr,omitempty"`
		StaticDir         *string   `toml:"static_dir,omitempty"`
		BroadcastInterval *Duration `toml:"broadcast_interval,omitempty"`
	} `toml:"server"`

	Store struct {
		Path *string `toml:"path,omitempty"`
	} `toml:"store"`

	Logging struct {
		Level *string `toml:"level,omitempty"`
		File  *string `toml:"file,omitempty"`
	} `toml:"logging"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *Duration) {
	if src != nil {
		*dst = time.Duration(*src)
	}
}

func setRamp(dst *expression.Ramp, src *rampFile) {
	if src != nil {
		*dst = expression.Ramp{Low: src.Low, High: src.High}
	}
}

// apply overlays the values present in f onto c.
func (f *fileConfig) apply(c *Config) error {
	set(&c.Camera.Device, f.Camera.Device)
	set(&c.Camera.Width, f.Camera.Width)
	set(&c.Camera.Height, f.Camera.Height)
	set(&c.Camera.FPS, f.Camera.FPS)
	set(&c.Camera.ProcessEveryN, f.Camera.ProcessEveryN)

	set(&c.Detector.Python, f.Detector.Python)
	set(&c.Detector.Script, f.Detector.Script)
	set(&c.Detector.MaxHands, f.Detector.MaxHands)
	set(&c.Detector.MinConfidence, f.Detector.MinConfidence)
	set(&c.Detector.MinTrackingConf, f.Detector.MinTrackingConfidence)
	setDuration(&c.Detector.IdleTimeout, f.Detector.IdleTimeout)

	g := &f.Gesture
	set(&c.Gesture.LandmarkFloor, g.LandmarkFloor)
	if g.FingerThresholds != nil {
		if len(g.FingerThresholds) != gesture.NumFingers {
			return fmt.Errorf("gesture.finger_thresholds needs %d values, got %d", gesture.NumFingers, len(g.FingerThresholds))
		}
		copy(c.Gesture.FingerThresholds[:], g.FingerThresholds)
	}
	set(&c.Gesture.Softness, g.Softness)
	set(&c.Gesture.MatchThreshold, g.MatchThreshold)
	set(&c.Gesture.MarginSaturation, g.MarginSaturation)
	for label, floor := range g.LabelFloors {
		if c.Gesture.LabelFloors == nil {
			c.Gesture.LabelFloors = make(map[string]float64)
		}
		c.Gesture.LabelFloors[label] = floor
	}
	set(&c.Gesture.PoseVisibilityFloor, g.PoseVisibilityFloor)
	set(&c.Gesture.RaiseThreshold, g.RaiseThreshold)
	set(&c.Gesture.WaveWindow, g.WaveWindow)
	set(&c.Gesture.WaveMinSamples, g.WaveMinSamples)
	set(&c.Gesture.WaveMinReversals, g.WaveMinReversals)
	set(&c.Gesture.WaveMinStdDev, g.WaveMinStdDev)
	set(&c.Gesture.WaveJitter, g.WaveJitter)

	e := &f.Expression
	setRamp(&c.Expression.HappyMouth, e.HappyMouth)
	setRamp(&c.Expression.SadMouth, e.SadMouth)
	setRamp(&c.Expression.SadEyes, e.SadEyes)
	setRamp(&c.Expression.AngryBrow, e.AngryBrow)
	setRamp(&c.Expression.SurprisedEyes, e.SurprisedEyes)
	setRamp(&c.Expression.SurprisedBrow, e.SurprisedBrow)
	set(&c.Expression.SurprisedEyeWt, e.SurprisedEyeWeight)
	set(&c.Expression.Floor, e.Floor)
	set(&c.Expression.NeutralBaseline, e.NeutralBaseline)
	set(&c.Expression.NeutralWeight, e.NeutralWeight)
	set(&c.Expression.FacePresence, e.FacePresence)

	set(&c.Blink.MinClosedFrames, f.Blink.MinClosedFrames)
	setDuration(&c.Blink.MaxClosure, f.Blink.MaxClosure)
	setDuration(&c.Blink.BurstWindow, f.Blink.BurstWindow)
	set(&c.Blink.MaxBlinks, f.Blink.MaxBlinks)

	for name, sf := range f.Smoothing {
		ch, err := event.ParseChannel(name)
		if err != nil {
			return fmt.Errorf("smoothing.%s: %w", name, err)
		}
		if c.Smoothing == nil {
			c.Smoothing = make(smoothing.Config)
		}
		cc := c.Smoothing[ch]
		set(&cc.MinHoldFrames, sf.MinHoldFrames)
		set(&cc.Ceiling, sf.Ceiling)
		set(&cc.Floor, sf.Floor)
		set(&cc.Decay, sf.Decay)
		set(&cc.HistorySize, sf.HistorySize)
		c.Smoothing[ch] = cc
	}

	d := &f.Dispatch
	for _, ch := range []struct {
		channel  event.Channel
		cooldown *Duration
		scope    *string
	}{
		{event.Blink, d.BlinkCooldown, d.BlinkScope},
		{event.Gesture, d.GestureCooldown, d.GestureScope},
		{event.Expression, d.ExpressionCooldown, d.ExpressionScope},
	} {
		cc := c.Dispatch.Channels[ch.channel]
		setDuration(&cc.Cooldown, ch.cooldown)
		if ch.scope != nil {
			scope, err := dispatch.ParseScope(*ch.scope)
			if err != nil {
				return fmt.Errorf("dispatch.%s_scope: %w", ch.channel, err)
			}
			cc.Scope = scope
		}
		if c.Dispatch.Channels == nil {
			c.Dispatch.Channels = make(map[event.Channel]dispatch.ChannelConfig)
		}
		c.Dispatch.Channels[ch.channel] = cc
	}
	set(&c.Dispatch.HistorySize, d.HistorySize)

	set(&c.Actions.PluginDir, f.Actions.PluginDir)
	setDuration(&c.Actions.Timeout, f.Actions.Timeout)
	set(&c.Actions.QueueSize, f.Actions.QueueSize)
	set(&c.Actions.MinExpressionConfidence, f.Actions.MinExpressionConfidence)

	set(&c.Server.Addr, f.Server.Addr)
	set(&c.Server.StaticDir, f.Server.StaticDir)
	setDuration(&c.Server.BroadcastInterval, f.Server.BroadcastInterval)

	set(&c.Store.Path, f.Store.Path)

	set(&c.Logging.Level, f.Logging.Level)
	set(&c.Logging.File, f.Logging.File)
	return nil
}

func ptr[T any](v T) *T { return &v }

func durationPtr(d time.Duration) *Duration { return ptr(Duration(d)) }

func rampPtr(r expression.Ramp) *rampFile { return &rampFile{Low: r.Low, High: r.High} }

// TOML renders c in the file layout Load reads.
func (c *Config) TOML() ([]byte, error) {
	var f fileConfig

	f.Camera.Device = ptr(c.Camera.Device)
	f.Camera.Width = ptr(c.Camera.Width)
	f.Camera.Height = ptr(c.Camera.Height)
	f.Camera.FPS = ptr(c.Camera.FPS)
	f.Camera.ProcessEveryN = ptr(c.Camera.ProcessEveryN)

	f.Detector.Python = ptr(c.Detector.Python)
	f.Detector.Script = ptr(c.Detector.Script)
	f.Detector.MaxHands = ptr(c.Detector.MaxHands)
	f.Detector.MinConfidence = ptr(c.Detector.MinConfidence)
	f.Detector.MinTrackingConfidence = ptr(c.Detector.MinTrackingConf)
	f.Detector.IdleTimeout = durationPtr(c.Detector.IdleTimeout)

	g := &f.Gesture
	g.LandmarkFloor = ptr(c.Gesture.LandmarkFloor)
	g.FingerThresholds = append([]float64(nil), c.Gesture.FingerThresholds[:]...)
	g.Softness = ptr(c.Gesture.Softness)
	g.MatchThreshold = ptr(c.Gesture.MatchThreshold)
	g.MarginSaturation = ptr(c.Gesture.MarginSaturation)
	g.LabelFloors = c.Gesture.LabelFloors
	g.PoseVisibilityFloor = ptr(c.Gesture.PoseVisibilityFloor)
	g.RaiseThreshold = ptr(c.Gesture.RaiseThreshold)
	g.WaveWindow = ptr(c.Gesture.WaveWindow)
	g.WaveMinSamples = ptr(c.Gesture.WaveMinSamples)
	g.WaveMinReversals = ptr(c.Gesture.WaveMinReversals)
	g.WaveMinStdDev = ptr(c.Gesture.WaveMinStdDev)
	g.WaveJitter = ptr(c.Gesture.WaveJitter)

	e := &f.Expression
	e.HappyMouth = rampPtr(c.Expression.HappyMouth)
	e.SadMouth = rampPtr(c.Expression.SadMouth)
	e.SadEyes = rampPtr(c.Expression.SadEyes)
	e.AngryBrow = rampPtr(c.Expression.AngryBrow)
	e.SurprisedEyes = rampPtr(c.Expression.SurprisedEyes)
	e.SurprisedBrow = rampPtr(c.Expression.SurprisedBrow)
	e.SurprisedEyeWeight = ptr(c.Expression.SurprisedEyeWt)
	e.Floor = ptr(c.Expression.Floor)
	e.NeutralBaseline = ptr(c.Expression.NeutralBaseline)
	e.NeutralWeight = ptr(c.Expression.NeutralWeight)
	e.FacePresence = ptr(c.Expression.FacePresence)

	f.Blink.MinClosedFrames = ptr(c.Blink.MinClosedFrames)
	f.Blink.MaxClosure = durationPtr(c.Blink.MaxClosure)
	f.Blink.BurstWindow = durationPtr(c.Blink.BurstWindow)
	f.Blink.MaxBlinks = ptr(c.Blink.MaxBlinks)

	f.Smoothing = make(map[string]smoothingFile, len(c.Smoothing))
	for ch, cc := range c.Smoothing {
		f.Smoothing[ch.String()] = smoothingFile{
			MinHoldFrames: ptr(cc.MinHoldFrames),
			Ceiling:       ptr(cc.Ceiling),
			Floor:         ptr(cc.Floor),
			Decay:         ptr(cc.Decay),
			HistorySize:   ptr(cc.HistorySize),
		}
	}

	ch := c.Dispatch.Channels
	f.Dispatch.BlinkCooldown = durationPtr(ch[event.Blink].Cooldown)
	f.Dispatch.GestureCooldown = durationPtr(ch[event.Gesture].Cooldown)
	f.Dispatch.ExpressionCooldown = durationPtr(ch[event.Expression].Cooldown)
	f.Dispatch.BlinkScope = ptr(ch[event.Blink].Scope.String())
	f.Dispatch.GestureScope = ptr(ch[event.Gesture].Scope.String())
	f.Dispatch.ExpressionScope = ptr(ch[event.Expression].Scope.String())
	f.Dispatch.HistorySize = ptr(c.Dispatch.HistorySize)

	f.Actions.PluginDir = ptr(c.Actions.PluginDir)
	f.Actions.Timeout = durationPtr(c.Actions.Timeout)
	f.Actions.QueueSize = ptr(c.Actions.QueueSize)
	f.Actions.MinExpressionConfidence = ptr(c.Actions.MinExpressionConfidence)

	f.Server.Addr = ptr(c.Server.Addr)
	f.Server.StaticDir = ptr(c.Server.StaticDir)
	f.Server.BroadcastInterval = durationPtr(c.Server.BroadcastInterval)

	f.Store.Path = ptr(c.Store.Path)
	f.Logging.Level = ptr(c.Logging.Level)
	f.Logging.File = ptr(c.Logging.File)

	return toml.Marshal(&f)
}
