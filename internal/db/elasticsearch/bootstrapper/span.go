package bootstrapper

const SpanIndexName = "span_index"

var spanIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 1,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"span_id": map[string]interface{}{
				"type": "keyword",
			},
			"parent_span_id": map[string]interface{}{
				"type": "keyword",
			},
			"trace_id": map[string]interface{}{
				"type": "keyword",
			},
			"service_name": map[string]interface{}{
				"type": "keyword",
			},
			"span_name": map[string]interface{}{
				"type": "keyword",
			},
			"status_code": map[string]interface{}{
				"type": "integer",
			},
			"duration": map[string]interface{}{
				"type": "long",
			},
			// absent until the trace group the span arrived in has been processed
			"exclusive_duration": map[string]interface{}{
				"type": "long",
			},
			"start_time": map[string]interface{}{
				"type": "date",
			},
			"end_time": map[string]interface{}{
				"type": "date",
			},
		},
	},
}
