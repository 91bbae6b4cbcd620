package models

import (
	"fmt"
	"time"
)

// Metric types recorded for every tracked emotional state
const (
	MetricValence   = "emotional_valence"
	MetricIntensity = "emotional_intensity"
	MetricArousal   = "arousal_level"
)

// Sources of longitudinal data points
const (
	SourceSession      = "session"
	SourceDailyCheckin = "daily_checkin"
	SourceAssessment   = "assessment"
)

// DataPoint is a single timestamped scalar observation for a subject.
// Points are value types and are never mutated once recorded.
type DataPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	MetricType string    `json:"metric_type"`
	Value      float64   `json:"value"`
	Context    string    `json:"context,omitempty"`
	Source     string    `json:"source,omitempty"`
}

// EmotionCategory represents a primary or secondary emotion
type EmotionCategory string

const (
	EmotionJoy         EmotionCategory = "joy"
	EmotionSadness     EmotionCategory = "sadness"
	EmotionAnger       EmotionCategory = "anger"
	EmotionFear        EmotionCategory = "fear"
	EmotionSurprise    EmotionCategory = "surprise"
	EmotionDisgust     EmotionCategory = "disgust"
	EmotionAnxiety     EmotionCategory = "anxiety"
	EmotionExcitement  EmotionCategory = "excitement"
	EmotionContentment EmotionCategory = "contentment"
	EmotionConfusion   EmotionCategory = "confusion"
	EmotionAmbivalence EmotionCategory = "ambivalence"
)

// Valid reports whether e is one of the known emotion categories
func (e EmotionCategory) Valid() bool {
	switch e {
	case EmotionJoy, EmotionSadness, EmotionAnger, EmotionFear, EmotionSurprise,
		EmotionDisgust, EmotionAnxiety, EmotionExcitement, EmotionContentment,
		EmotionConfusion, EmotionAmbivalence:
		return true
	}
	return false
}

// EmotionalState is a multi-dimensional emotional reading at one instant,
// produced by the upstream text classifier.
type EmotionalState struct {
	Timestamp             time.Time         `json:"timestamp" binding:"required"`
	PrimaryEmotion        EmotionCategory   `json:"primary_emotion" binding:"required"`
	SecondaryEmotions     []EmotionCategory `json:"secondary_emotions,omitempty"`
	Intensity             float64           `json:"intensity"`
	Valence               float64           `json:"valence"`
	Arousal               float64           `json:"arousal"`
	MixedEmotions         bool              `json:"mixed_emotions"`
	ContradictoryEmotions []string          `json:"contradictory_emotions,omitempty"`
	Confidence            float64           `json:"confidence"`
	Triggers              []string          `json:"triggers,omitempty"`
}

// Validate checks the ranges of the state's scalar dimensions
func (s *EmotionalState) Validate() error {
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if !s.PrimaryEmotion.Valid() {
		return fmt.Errorf("unknown primary emotion %q", s.PrimaryEmotion)
	}
	for _, e := range s.SecondaryEmotions {
		if !e.Valid() {
			return fmt.Errorf("unknown secondary emotion %q", e)
		}
	}
	if !inRange(s.Intensity, 0, 100) {
		return fmt.Errorf("intensity %.2f out of range [0,100]", s.Intensity)
	}
	if !inRange(s.Valence, -100, 100) {
		return fmt.Errorf("valence %.2f out of range [-100,100]", s.Valence)
	}
	if !inRange(s.Arousal, 0, 100) {
		return fmt.Errorf("arousal %.2f out of range [0,100]", s.Arousal)
	}
	if !inRange(s.Confidence, 0, 1) {
		return fmt.Errorf("confidence %.2f out of range [0,1]", s.Confidence)
	}
	return nil
}

// inRange is false for NaN and for values outside [lo,hi], infinities included
func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// TrackResult echoes what was recorded for a tracked state
type TrackResult struct {
	SubjectID       string    `json:"subject_id"`
	TrackedMetrics  []string  `json:"tracked_metrics"`
	DataPointsAdded int       `json:"data_points_added"`
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
}
