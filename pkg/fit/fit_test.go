package fit

import (
	"PerfectFit/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		frame float64
		face  float64
		want  entity.FitCategory
	}{
		{"exactly tight boundary", 137, 140, entity.FitTight},
		{"well under", 120, 140, entity.FitTight},
		{"just above tight boundary", 137.01, 140, entity.FitPerfect},
		{"equal", 140, 140, entity.FitPerfect},
		{"just below loose boundary", 144.99, 140, entity.FitPerfect},
		{"exactly loose boundary", 145, 140, entity.FitLoose},
		{"well over", 160, 140, entity.FitLoose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.frame, tt.face))
		})
	}
}

func TestClassify_Labels(t *testing.T) {
	assert.Equal(t, "Tight Fit", Classify(100, 140).Label())
	assert.Equal(t, "Perfect Fit", Classify(140, 140).Label())
	assert.Equal(t, "Loose Fit", Classify(150, 140).Label())
	assert.NotEmpty(t, Classify(140, 140).Message())
}
