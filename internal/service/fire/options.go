package fire

import "firewatch/internal/config"

// OptionsFromConfig maps the configuration onto estimator options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mock: cfg.Mock,
		Heuristic: HeuristicParams{
			CoreBrightness: cfg.Heuristic.CoreBrightness,
			WarmRed:        cfg.Heuristic.WarmRed,
			WarmBrightness: cfg.Heuristic.WarmBrightness,
			MinFireRatio:   cfg.Heuristic.MinFireRatio,
			BaseConfidence: cfg.Heuristic.BaseConfidence,
			RatioGain:      cfg.Heuristic.RatioGain,
			MaxConfidence:  cfg.Heuristic.MaxConfidence,
		},
		ModelThreshold: cfg.ConfidenceThreshold,
		Keywords:       DefaultFireKeywords,
	}
}
