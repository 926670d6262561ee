package entity

import "strings"

type FaceShapeRecommendation struct {
	ShapesToPick  string `json:"shapes_to_pick"`
	WhyPick       string `json:"why_pick"`
	ShapesToAvoid string `json:"shapes_to_avoid"`
	WhyAvoid      string `json:"why_avoid"`
}

var faceShapeRecommendations = map[string]FaceShapeRecommendation{
	"oval": {
		ShapesToPick:  "Rectangle, Semi square, Square, Hexagon",
		WhyPick:       "Adds structure for multifocal lens height. Creates a sharp premium style contrast.",
		ShapesToAvoid: "Round, Small Round",
		WhyAvoid:      "Reduces lens depth. Weak for multifocals.",
	},
	"square": {
		ShapesToPick:  "Round, Oval, Cateye",
		WhyPick:       "Softens angles, enables comfortable multifocal viewing zones. Balances jawline with elegant lift.",
		ShapesToAvoid: "Square, Heavy Frames",
		WhyAvoid:      "Over-angular. Visually harsh.",
	},
	"round": {
		ShapesToPick:  "Rectangle, Square, Cateye, Hexagon",
		WhyPick:       "Adds definition and supports wider reading area. Creates authority and face length.",
		ShapesToAvoid: "Round, Tiny Shapes",
		WhyAvoid:      "Crowds progressive corridor.",
	},
	"rectangle": {
		ShapesToPick:  "Round, Aviator, Square, Cateye",
		WhyPick:       "Reduces face length; deeper lenses aid multifocals. Adds width and visual balance.",
		ShapesToAvoid: "Narrow frames",
		WhyAvoid:      "Limits lens progression space.",
	},
	"heart": {
		ShapesToPick:  "Oval, Cateye, Round, Aviator, Wayfarer",
		WhyPick:       "Balances forehead for stable multifocal fit. Adds lower-face width for harmony.",
		ShapesToAvoid: "Top-heavy frames",
		WhyAvoid:      "Shifts focus upward. Unstable look.",
	},
}

func FaceShapeRecommendationFor(faceShape string) (FaceShapeRecommendation, bool) {
	key := strings.ToLower(strings.TrimSpace(faceShape))
	if key == "" {
		return FaceShapeRecommendation{}, false
	}
	rec, ok := faceShapeRecommendations[key]
	return rec, ok
}
