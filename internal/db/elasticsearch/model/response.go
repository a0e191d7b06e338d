package model

// Structs for parsing the Elasticsearch response
type EsResponse struct {
	Took     int       `json:"took"`
	TimedOut bool      `json:"timed_out"`
	Shards   ShardInfo `json:"_shards"`
	Hits     Hits      `json:"hits"`
}

type ShardInfo struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type Hits struct {
	Total    Total       `json:"total"`
	MaxScore *float64    `json:"max_score"`
	HitArray []HitSource `json:"hits"`
}

type Total struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

type HitSource struct {
	Index  string                 `json:"_index"`
	ID     string                 `json:"_id"`
	Score  *float64               `json:"_score"`
	Source map[string]interface{} `json:"_source"`
}

// Documents returns the source of every hit with its document id under "_id".
func (r EsResponse) Documents() []map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(r.Hits.HitArray))
	for _, hit := range r.Hits.HitArray {
		source := hit.Source
		if source == nil {
			source = make(map[string]interface{})
		}
		source["_id"] = hit.ID
		results = append(results, source)
	}
	return results
}

type CountResponse struct {
	Count  int       `json:"count"`
	Shards ShardInfo `json:"_shards"`
}
