package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/utils"
)

// ScoreWeights holds every tunable scoring constant. The defaults are the
// shipped business rules; deployments override them via env or a yaml file
// pointed at by SCORE_WEIGHTS_FILE.
type ScoreWeights struct {
	MutualPerConnection float64 `yaml:"mutual_per_connection"`
	InterestPerShared   float64 `yaml:"interest_per_shared"`
	EventPerShared      float64 `yaml:"event_per_shared"`

	ConfidenceMutual   float64 `yaml:"confidence_mutual"`
	ConfidenceInterest float64 `yaml:"confidence_interest"`
	ConfidenceEvent    float64 `yaml:"confidence_event"`
	ConfidenceLocation float64 `yaml:"confidence_location"`

	InfluenceFollowers  float64 `yaml:"influence_followers"`
	InfluenceEngagement float64 `yaml:"influence_engagement"`
	InfluenceRatio      float64 `yaml:"influence_ratio"`
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		MutualPerConnection: 10,
		InterestPerShared:   5,
		EventPerShared:      3,

		ConfidenceMutual:   0.4,
		ConfidenceInterest: 0.3,
		ConfidenceEvent:    0.2,
		ConfidenceLocation: 0.1,

		InfluenceFollowers:  2,
		InfluenceEngagement: 0.5,
		InfluenceRatio:      10,
	}
}

// LoadScoreWeights layers SCORE_WEIGHTS_FILE (when set) and env overrides on
// top of the defaults.
func LoadScoreWeights(log *logger.Logger) (ScoreWeights, error) {
	w := DefaultScoreWeights()

	if path := os.Getenv("SCORE_WEIGHTS_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return w, fmt.Errorf("read score weights file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &w); err != nil {
			return w, fmt.Errorf("parse score weights file: %w", err)
		}
		log.Info("Loaded score weights", "path", path)
	}

	w.MutualPerConnection = utils.GetEnvAsFloat("SCORE_MUTUAL_PER_CONNECTION", w.MutualPerConnection, log)
	w.InterestPerShared = utils.GetEnvAsFloat("SCORE_INTEREST_PER_SHARED", w.InterestPerShared, log)
	w.EventPerShared = utils.GetEnvAsFloat("SCORE_EVENT_PER_SHARED", w.EventPerShared, log)
	return w, nil
}

// Confidence blends the four suggestion signals into a [0,1] score. Counts
// normalize against 10, the location score against its max of 4.
func (w ScoreWeights) Confidence(mutualCount, sharedInterests, sharedEvents, locationScore int) float64 {
	mutual := clamp01(float64(mutualCount) / 10)
	interests := clamp01(float64(sharedInterests) / 10)
	events := clamp01(float64(sharedEvents) / 10)
	location := clamp01(float64(locationScore) / 4)

	score := mutual*w.ConfidenceMutual +
		interests*w.ConfidenceInterest +
		events*w.ConfidenceEvent +
		location*w.ConfidenceLocation
	return clamp01(score)
}

// Influence is the weighted composite of follower count, trailing engagement
// and the follower/following ratio. The ratio bonus is 0 for users who
// follow nobody.
func (w ScoreWeights) Influence(followers, following int, engagementSum float64) float64 {
	score := float64(followers)*w.InfluenceFollowers + engagementSum*w.InfluenceEngagement
	if following > 0 {
		score += float64(followers) / float64(following) * w.InfluenceRatio
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
