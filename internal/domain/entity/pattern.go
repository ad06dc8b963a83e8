package entity

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

const (
	// PatternUsabilityThreshold is the minimum confidence*successRate score a
	// learned pattern needs to be offered for replay.
	PatternUsabilityThreshold = 0.4

	// PatternInitialConfidence is awarded to a freshly stored pattern.
	PatternInitialConfidence = 0.6

	// PatternRateWeight is the EWMA weight of the newest execution when
	// updating a pattern's rolling success rate.
	PatternRateWeight = 0.3
)

// PatternStep is one replayable step of a learned action sequence.
type PatternStep struct {
	Order      int           `json:"order"`
	Kind       ActionKind    `json:"kind"`
	Target     ElementTarget `json:"target"`
	Value      string        `json:"value,omitempty"`
	TimeoutMs  int           `json:"timeoutMs"`
	MaxRetries int           `json:"maxRetries"`
}

// LearnedPattern is a previously successful action sequence for a task type,
// tagged with the fingerprint of the environment it was learned in.
type LearnedPattern struct {
	ID                 string        `json:"id"`
	TaskType           TaskType      `json:"taskType"`
	ContextFingerprint string        `json:"contextFingerprint"`
	ActionSequence     []PatternStep `json:"actionSequence"`
	Confidence         float64       `json:"confidence"`
	SuccessRate        float64       `json:"successRate"`
	Executions         int           `json:"executions"`
	LastUsedAt         time.Time     `json:"lastUsedAt"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// Score ranks patterns for selection.
func (p *LearnedPattern) Score() float64 {
	return p.Confidence * p.SuccessRate
}

// Usable reports whether the pattern is still above the usability floor.
// Repeated failures push a pattern below it, after which it is never offered.
func (p *LearnedPattern) Usable() bool {
	return p.Score() >= PatternUsabilityThreshold
}

// RecordExecution folds one execution outcome into the rolling success rate.
// Confidence and success rate only move through executions of this pattern.
func (p *LearnedPattern) RecordExecution(success bool, at time.Time) {
	observed := 0.0
	if success {
		observed = 1.0
	}
	if p.Executions == 0 {
		p.SuccessRate = observed
	} else {
		p.SuccessRate = (1-PatternRateWeight)*p.SuccessRate + PatternRateWeight*observed
	}
	p.Executions++
	p.LastUsedAt = at
	if success {
		if p.Confidence < 1.0 {
			p.Confidence += (1.0 - p.Confidence) * 0.1
		}
	} else {
		p.Confidence *= 0.8
	}
}

// ContextFingerprint derives the signature used to match learned patterns to
// new task instances: task type plus the execution environment's host.
func ContextFingerprint(taskType TaskType, host string, environment string) string {
	h := sha1.New()
	h.Write([]byte(strings.Join([]string{string(taskType), strings.ToLower(host), environment}, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
