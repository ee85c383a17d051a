// Package emotion tracks character affect on a 2D valence-arousal model.
package emotion

import (
	"math"

	"github.com/lumichat/character-engine/internal/types"
)

// labelBox is one named region of the valence-arousal plane.
type labelBox struct {
	Name       string
	ValenceMin float64
	ValenceMax float64
	ArousalMin float64
	ArousalMax float64
}

// emotionMap covers the plane with overlapping boxes. Overlaps resolve to
// the box whose center is geometrically closest to the point.
var emotionMap = []labelBox{
	{Name: "excited", ValenceMin: 0.5, ValenceMax: 1, ArousalMin: 0.7, ArousalMax: 1},
	{Name: "happy", ValenceMin: 0.3, ValenceMax: 0.8, ArousalMin: 0.3, ArousalMax: 0.7},
	{Name: "loving", ValenceMin: 0.5, ValenceMax: 1, ArousalMin: 0.2, ArousalMax: 0.5},
	{Name: "calm", ValenceMin: 0, ValenceMax: 0.5, ArousalMin: 0, ArousalMax: 0.3},
	{Name: "curious", ValenceMin: 0.1, ValenceMax: 0.5, ArousalMin: 0.4, ArousalMax: 0.7},
	{Name: "surprised", ValenceMin: -0.2, ValenceMax: 0.5, ArousalMin: 0.6, ArousalMax: 1},
	{Name: "confused", ValenceMin: -0.3, ValenceMax: 0.1, ArousalMin: 0.3, ArousalMax: 0.6},
	{Name: "bored", ValenceMin: -0.3, ValenceMax: 0, ArousalMin: 0, ArousalMax: 0.3},
	{Name: "sad", ValenceMin: -0.8, ValenceMax: -0.2, ArousalMin: 0, ArousalMax: 0.4},
	{Name: "fearful", ValenceMin: -0.7, ValenceMax: -0.2, ArousalMin: 0.5, ArousalMax: 0.9},
	{Name: "angry", ValenceMin: -1, ValenceMax: -0.4, ArousalMin: 0.6, ArousalMax: 1},
	{Name: "disgusted", ValenceMin: -0.9, ValenceMax: -0.4, ArousalMin: 0.3, ArousalMax: 0.7},
}

// DefaultLabel is returned when no box contains the point.
const DefaultLabel = "calm"

// LabelFor maps a valence-arousal point to the nearest containing label.
func LabelFor(valence, arousal float64) string {
	best := DefaultLabel
	bestDistance := math.Inf(1)

	for _, box := range emotionMap {
		if valence < box.ValenceMin || valence > box.ValenceMax {
			continue
		}
		if arousal < box.ArousalMin || arousal > box.ArousalMax {
			continue
		}
		vCenter := (box.ValenceMin + box.ValenceMax) / 2
		aCenter := (box.ArousalMin + box.ArousalMax) / 2
		distance := math.Hypot(valence-vCenter, arousal-aCenter)
		if distance < bestDistance {
			bestDistance = distance
			best = box.Name
		}
	}
	return best
}

// Labels returns the closed set of label names.
func Labels() []string {
	names := make([]string, len(emotionMap))
	for i, box := range emotionMap {
		names[i] = box.Name
	}
	return names
}

// Smooth blends the previous state with a new raw sentiment. weight is the
// share kept from the previous state.
func Smooth(current, next types.SentimentResult, weight float64) types.SentimentResult {
	return types.SentimentResult{
		Valence: current.Valence*weight + next.Valence*(1-weight),
		Arousal: current.Arousal*weight + next.Arousal*(1-weight),
	}
}

// Clamp bounds valence to [-1,1] and arousal to [0,1].
func Clamp(s types.SentimentResult) types.SentimentResult {
	return types.SentimentResult{
		Valence: math.Max(-1, math.Min(1, s.Valence)),
		Arousal: math.Max(0, math.Min(1, s.Arousal)),
	}
}
