package detector

// ThumbsUpLandmarks returns a preset HandLandmarks representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{Handedness: "Right", Score: 0.95}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (Y decreases going up)
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{Handedness: "Right", Score: 0.95}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// PeaceSignLandmarks returns index and middle fingers extended, the rest
// curled and the thumb tucked across the palm.
func PeaceSignLandmarks() HandLandmarks {
	landmarks := OpenPalmLandmarks()
	tuckThumb(&landmarks)
	curlRingAndPinky(&landmarks)
	return landmarks
}

// PointingLandmarks returns only the index finger extended.
func PointingLandmarks() HandLandmarks {
	landmarks := PeaceSignLandmarks()
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.60, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.49, Y: 0.64, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.49, Y: 0.68, Z: -0.02}
	return landmarks
}

// FistLandmarks returns every finger curled.
func FistLandmarks() HandLandmarks {
	landmarks := PointingLandmarks()
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.62, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.54, Y: 0.66, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.54, Y: 0.70, Z: -0.02}
	return landmarks
}

func tuckThumb(l *HandLandmarks) {
	l.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.72, Z: -0.01}
	l.Points[ThumbIP] = Point3D{X: 0.53, Y: 0.70, Z: -0.02}
	l.Points[ThumbTip] = Point3D{X: 0.49, Y: 0.70, Z: -0.03}
}

func curlRingAndPinky(l *HandLandmarks) {
	l.Points[RingPIP] = Point3D{X: 0.45, Y: 0.62, Z: -0.05}
	l.Points[RingDIP] = Point3D{X: 0.44, Y: 0.66, Z: -0.04}
	l.Points[RingTip] = Point3D{X: 0.44, Y: 0.70, Z: -0.02}
	l.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.64, Z: -0.05}
	l.Points[PinkyDIP] = Point3D{X: 0.39, Y: 0.68, Z: -0.04}
	l.Points[PinkyTip] = Point3D{X: 0.39, Y: 0.72, Z: -0.02}
}

// RestingPose returns an upper body with both arms down.
func RestingPose() PoseLandmarks {
	pose := PoseLandmarks{Score: 0.9}
	set := func(i int, x, y float64) {
		pose.Points[i] = PosePoint{Point3D: Point3D{X: x, Y: y}, Visibility: 0.95}
	}
	set(PoseNose, 0.50, 0.30)
	set(PoseLeftShoulder, 0.60, 0.50)
	set(PoseRightShoulder, 0.40, 0.50)
	set(PoseLeftElbow, 0.63, 0.65)
	set(PoseRightElbow, 0.37, 0.65)
	set(PoseLeftWrist, 0.64, 0.80)
	set(PoseRightWrist, 0.36, 0.80)
	return pose
}

// RaisedHandPose returns RestingPose with the right wrist held above the
// right shoulder, offset horizontally by dx.
func RaisedHandPose(dx float64) PoseLandmarks {
	pose := RestingPose()
	pose.Points[PoseRightElbow].Point3D = Point3D{X: 0.35, Y: 0.38}
	pose.Points[PoseRightWrist].Point3D = Point3D{X: 0.36 + dx, Y: 0.25}
	return pose
}
