package guidance

import (
	"PerfectFit/internal/entity"
	"strings"
)

// Spoken maps a failing check to the instruction read out to the user.
func Spoken(c entity.ValidationCheck) string {
	msg := strings.ToLower(c.Message)

	switch c.ID {
	case entity.CheckFaceDetected:
		if strings.Contains(msg, "multiple") {
			return "Only one person should be in frame. Please make sure no one else is visible."
		}
		return "Position your face in the oval. Make sure you are well lit and facing the camera."

	case entity.CheckFaceInOval:
		switch {
		case strings.Contains(msg, "left"):
			return "Move your face slightly to the left to centre it in the oval."
		case strings.Contains(msg, "right"):
			return "Move your face slightly to the right to centre it in the oval."
		case strings.Contains(msg, "up"):
			return "Move your face up a little to align with the guide."
		case strings.Contains(msg, "down"):
			return "Move your face down a little to align with the guide."
		}
		return "Centre your face inside the oval guide."

	case entity.CheckDistance:
		if strings.Contains(msg, "closer") {
			return "Please move closer to the camera. Your face should fill most of the oval."
		}
		if strings.Contains(msg, "back") {
			return "Please move back from the camera. You are a bit too close."
		}
		return "Adjust your distance so your face fills the oval."

	case entity.CheckTilt:
		if strings.Contains(msg, "tilt head left") {
			return "Straighten your head. Tilt it slightly to the left."
		}
		if strings.Contains(msg, "tilt head right") {
			return "Straighten your head. Tilt it slightly to the right."
		}
		return "Keep your head straight. Avoid tilting left or right for accurate measurement."

	case entity.CheckRotation:
		if strings.Contains(msg, "turn head left") {
			return "Look straight at the camera. Turn your face slightly to the left."
		}
		if strings.Contains(msg, "turn head right") {
			return "Look straight at the camera. Turn your face slightly to the right."
		}
		return "Please look directly at the camera. Face forward for the best result."

	case entity.CheckLighting:
		switch {
		case strings.Contains(msg, "dark"):
			return "It is too dark. Please add more light or move to a brighter area."
		case strings.Contains(msg, "bright"):
			return "It is too bright. Reduce the light or move away from direct sunlight."
		case strings.Contains(msg, "shadow"):
			return "Reduce shadows on your face. Try turning on a light in front of you."
		}
		return c.Message

	case entity.CheckEyesOpen:
		return "Please keep both eyes open and look at the camera. This helps us measure accurately."
	}

	return c.Message
}
