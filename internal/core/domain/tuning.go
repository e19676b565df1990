package domain

// RetrievalTuning carries the empirically tuned retrieval constants. The
// defaults below are the documented contract; deployments may override them
// through the YAML tuning file.
type RetrievalTuning struct {
	// Progressive deepening.
	DistanceCeiling   float64 `yaml:"distance_ceiling"`
	EarlyStopDistance float64 `yaml:"early_stop_distance"`
	MaxSearchK        int     `yaml:"max_search_k"`
	MaxDepthLevels    int     `yaml:"max_depth_levels"`

	// Filtered search boost applied to uploads-index hits.
	FilteredBoost    float64 `yaml:"filtered_boost"`
	MinFilteredHits  int     `yaml:"min_filtered_hits"`
	ExpansionSearchK int     `yaml:"expansion_search_k"`

	// Per-type chunk-count bases (floor 3, cap 10).
	ChunkCountBase map[QueryType]int `yaml:"chunk_count_base"`

	// Per-type distance thresholds (lower = stricter).
	RelevanceThreshold map[QueryType]float64 `yaml:"relevance_threshold"`

	// Per-type minimum keyword coverage for the relevance verifier.
	MinCoverage map[QueryType]float64 `yaml:"min_coverage"`

	// Final context sizes after reranking.
	RerankTopK         int `yaml:"rerank_top_k"`
	AdaptiveRerankTopK int `yaml:"adaptive_rerank_top_k"`
}

func DefaultRetrievalTuning() RetrievalTuning {
	return RetrievalTuning{
		DistanceCeiling:   3.0,
		EarlyStopDistance: 2.5,
		MaxSearchK:        20,
		MaxDepthLevels:    3,

		FilteredBoost:    0.5,
		MinFilteredHits:  3,
		ExpansionSearchK: 5,

		ChunkCountBase: map[QueryType]int{
			QuerySimple:      3,
			QueryComplex:     6,
			QueryComparative: 8,
			QueryProcedural:  5,
		},
		RelevanceThreshold: map[QueryType]float64{
			QuerySimple:      1.2,
			QueryComplex:     1.8,
			QueryComparative: 2.0,
			QueryProcedural:  1.5,
		},
		MinCoverage: map[QueryType]float64{
			QuerySimple:      0.7,
			QueryComplex:     0.5,
			QueryComparative: 0.4,
			QueryProcedural:  0.6,
		},

		RerankTopK:         5,
		AdaptiveRerankTopK: 7,
	}
}

// Normalize fills zero values with the documented defaults so a partially
// specified tuning file stays safe.
func (t RetrievalTuning) Normalize() RetrievalTuning {
	def := DefaultRetrievalTuning()
	out := t
	if out.DistanceCeiling <= 0 {
		out.DistanceCeiling = def.DistanceCeiling
	}
	if out.EarlyStopDistance <= 0 {
		out.EarlyStopDistance = def.EarlyStopDistance
	}
	if out.MaxSearchK <= 0 {
		out.MaxSearchK = def.MaxSearchK
	}
	if out.MaxDepthLevels <= 0 {
		out.MaxDepthLevels = def.MaxDepthLevels
	}
	if out.FilteredBoost <= 0 {
		out.FilteredBoost = def.FilteredBoost
	}
	if out.MinFilteredHits <= 0 {
		out.MinFilteredHits = def.MinFilteredHits
	}
	if out.ExpansionSearchK <= 0 {
		out.ExpansionSearchK = def.ExpansionSearchK
	}
	if len(out.ChunkCountBase) == 0 {
		out.ChunkCountBase = def.ChunkCountBase
	}
	if len(out.RelevanceThreshold) == 0 {
		out.RelevanceThreshold = def.RelevanceThreshold
	}
	if len(out.MinCoverage) == 0 {
		out.MinCoverage = def.MinCoverage
	}
	if out.RerankTopK <= 0 {
		out.RerankTopK = def.RerankTopK
	}
	if out.AdaptiveRerankTopK <= 0 {
		out.AdaptiveRerankTopK = def.AdaptiveRerankTopK
	}
	return out
}
