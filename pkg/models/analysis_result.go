package models

// Analysis holds the scoring output for a job's original content.
type Analysis struct {
	ReadabilityScore float64            `json:"readability_score"`
	SEOScore         float64            `json:"seo_score"`
	Tone             string             `json:"tone"`
	KeywordDensity   map[string]float64 `json:"keyword_density"`
	WordCount        int                `json:"word_count"`
	SentenceCount    int                `json:"sentence_count"`
	Suggestions      []string           `json:"suggestions"`
}

// Optimization holds the rewritten content and the improvements applied.
type Optimization struct {
	OptimizedContent string   `json:"optimized_content"`
	Improvements     []string `json:"improvements"`
}

// Variants holds two A/B test rewrites and how their strategies differ.
type Variants struct {
	VariantA    string   `json:"variant_a"`
	VariantB    string   `json:"variant_b"`
	Differences []string `json:"differences"`
}

func (a *Analysis) clone() *Analysis {
	if a == nil {
		return nil
	}
	c := *a
	if a.KeywordDensity != nil {
		c.KeywordDensity = make(map[string]float64, len(a.KeywordDensity))
		for k, v := range a.KeywordDensity {
			c.KeywordDensity[k] = v
		}
	}
	c.Suggestions = cloneStrings(a.Suggestions)
	return &c
}

func (o *Optimization) clone() *Optimization {
	if o == nil {
		return nil
	}
	c := *o
	c.Improvements = cloneStrings(o.Improvements)
	return &c
}

func (v *Variants) clone() *Variants {
	if v == nil {
		return nil
	}
	c := *v
	c.Differences = cloneStrings(v.Differences)
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
