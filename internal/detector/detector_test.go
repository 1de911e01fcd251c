package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestHandLandmarks_Normalize(t *testing.T) {
	t.Run("wrist at origin and unit palm", func(t *testing.T) {
		hand := HandLandmarks{Handedness: "Right", Score: 0.9}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 13.0, Y: 24.0, Z: 5.0} // distance = 5.0
		for i := 1; i < NumLandmarks; i++ {
			if i != MiddleMCP {
				hand.Points[i] = Point3D{X: 10.0 + float64(i), Y: 20.0 + float64(i), Z: 5.0}
			}
		}

		normalized := hand.Normalize()

		if normalized.Points[Wrist].Distance(Point3D{}) > epsilon {
			t.Errorf("expected wrist at origin, got %+v", normalized.Points[Wrist])
		}
		if d := normalized.Points[MiddleMCP].Distance(Point3D{}); math.Abs(d-1.0) > epsilon {
			t.Errorf("expected wrist to middle MCP distance 1.0, got %f", d)
		}
		if normalized.Handedness != "Right" || normalized.Score != 0.9 {
			t.Errorf("handedness/score not preserved: %s %f", normalized.Handedness, normalized.Score)
		}
	})

	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *HandLandmarks
		if hand.Normalize() != nil {
			t.Error("expected nil result for nil input")
		}
	})

	t.Run("zero scale returns translated only", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}

		normalized := hand.Normalize()

		if math.Abs(normalized.Points[Wrist].X) > epsilon {
			t.Errorf("expected wrist X to be 0, got %f", normalized.Points[Wrist].X)
		}
	})
}

func TestFaceBox_Valid(t *testing.T) {
	var missing *FaceBox
	if missing.Valid() {
		t.Error("nil box should be invalid")
	}
	if (&FaceBox{Width: 0, Height: 0.2}).Valid() {
		t.Error("zero-width box should be invalid")
	}
	if !(&FaceBox{Width: 0.3, Height: 0.4}).Valid() {
		t.Error("positive box should be valid")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty signal by default", func(t *testing.T) {
		mock := NewMockDetector()

		sig, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(sig.Hands) != 0 || sig.Pose != nil || sig.Face != nil {
			t.Errorf("expected empty signal, got %+v", sig)
		}
	})

	t.Run("returns configured signal", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetSignal(FrameSignal{
			Face:    &FaceBox{Width: 0.2, Height: 0.3},
			EyeOpen: Bool(false),
		})
		mock.SetHands([]HandLandmarks{ThumbsUpLandmarks(), OpenPalmLandmarks()})

		sig, err := mock.Detect(nil)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sig.Hands) != 2 {
			t.Fatalf("expected 2 hands, got %d", len(sig.Hands))
		}
		if sig.EyeOpen == nil || *sig.EyeOpen {
			t.Error("expected eye closed")
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns error when set", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		_, err := mock.Detect(nil)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("full response", func(t *testing.T) {
		points := `[` + repeatPoint(NumLandmarks) + `]`
		pose := `[` + repeatPosePoint(NumPoseLandmarks) + `]`
		line := []byte(`{"hands":[{"points":` + points + `,"handedness":"Left","score":0.8}],` +
			`"pose":{"points":` + pose + `,"score":0.7},` +
			`"face":{"x":0.1,"y":0.1,"width":0.3,"height":0.4,"score":0.9},` +
			`"eye_open":true,"expression":{"eyebrow_height":0.12,"mouth_ratio":3.1,"eye_opening":0.05}}` + "\n")

		sig, err := decodeResponse(line)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(sig.Hands) != 1 || sig.Hands[0].Handedness != "Left" {
			t.Errorf("unexpected hands: %+v", sig.Hands)
		}
		if sig.Pose == nil || sig.Pose.Points[PoseRightWrist].Visibility != 0.5 {
			t.Errorf("unexpected pose: %+v", sig.Pose)
		}
		if !sig.Face.Valid() {
			t.Error("expected valid face")
		}
		if sig.EyeOpen == nil || !*sig.EyeOpen {
			t.Error("expected eye open")
		}
		if sig.Expression == nil || sig.Expression.MouthRatio != 3.1 {
			t.Errorf("unexpected expression: %+v", sig.Expression)
		}
	})

	t.Run("partial hand is dropped", func(t *testing.T) {
		sig, err := decodeResponse([]byte(`{"hands":[{"points":[{"x":1,"y":1,"z":0}],"score":0.9}]}`))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(sig.Hands) != 0 {
			t.Errorf("expected partial hand to be dropped, got %d", len(sig.Hands))
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{"error":"model not loaded"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`not json`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg := DefaultConfig()
	cfg.MaxHands = 0
	cfg.MinConfidence = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error")
	}
}

func repeatPoint(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += `{"x":0.5,"y":0.5,"z":0}`
	}
	return s
}

func repeatPosePoint(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += `{"x":0.5,"y":0.5,"z":0,"visibility":0.5}`
	}
	return s
}
