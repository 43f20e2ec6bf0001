package vector

// Hit is a single ranked result from an ANN search: the candidate id and the
// engine's inner-product similarity score.
type Hit struct {
	ID    string
	Score float64
}

// schema constants fixed by spec §4.3 — the collection this adapter manages
// always has exactly this shape.
const (
	idField        = "candidate_id"
	idFieldMaxLen  = 36
	embeddingField = "embedding"
	metric         = "IP"
	indexType      = "IVF_FLAT"
	nlist          = 128
	nprobe         = 10
)

type ensureCollectionRequest struct {
	Schema struct {
		IDField struct {
			Name    string `json:"name"`
			Type    string `json:"type"`
			MaxLen  int    `json:"max_len"`
			Primary bool   `json:"primary"`
		} `json:"id_field"`
		VectorField struct {
			Name string `json:"name"`
			Type string `json:"type"`
			Dim  int    `json:"dim"`
		} `json:"vector_field"`
	} `json:"schema"`
	Index struct {
		Type   string `json:"type"`
		Metric string `json:"metric"`
		NList  int    `json:"nlist"`
	} `json:"index"`
}

type upsertRequest struct {
	IDs     []string    `json:"ids"`
	Vectors [][]float32 `json:"vectors"`
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

type searchRequest struct {
	Vector   []float32 `json:"vector"`
	TopK     int       `json:"top_k"`
	NProbe   int       `json:"nprobe"`
	Metric   string    `json:"metric"`
	IDFilter []string  `json:"id_allowlist,omitempty"`
}

type searchResponse struct {
	Hits []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"hits"`
}
