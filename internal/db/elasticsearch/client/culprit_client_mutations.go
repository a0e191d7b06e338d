package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

func (c *CulpritClientImpl) BulkIndex(
	ctx context.Context,
	metaInfo []MetaMap,
	documentInfo []DocumentMap,
	index string,
) error {
	body, err := buildBulkBody(metaInfo, documentInfo)
	if err != nil {
		return err
	}

	var res *esapi.Response
	if len(index) > 0 {
		res, err = c.es.Bulk(
			bytes.NewReader(body),
			c.es.Bulk.WithIndex(index),
			c.es.Bulk.WithContext(ctx),
			c.es.Bulk.WithRefresh(c.refreshRate),
		)
	} else {
		res, err = c.es.Bulk(
			bytes.NewReader(body),
			c.es.Bulk.WithContext(ctx),
			c.es.Bulk.WithRefresh(c.refreshRate),
		)
	}
	if err != nil {
		return fmt.Errorf("error bulk indexing: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index error: %s", res.String())
	}
	return nil
}

// buildBulkBody interleaves action and document lines as the bulk API expects.
// Documents without a matching meta entry get an empty index action.
func buildBulkBody(metaInfo []MetaMap, documentInfo []DocumentMap) ([]byte, error) {
	var buf bytes.Buffer
	for i, document := range documentInfo {
		var meta MetaMap
		if i < len(metaInfo) && metaInfo[i] != nil {
			meta = metaInfo[i]
		} else {
			meta = MetaMap{"index": map[string]interface{}{}}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("error marshaling meta to bulk index: %w", err)
		}
		buf.Write(metaJSON)
		buf.WriteByte('\n')

		dataJSON, err := json.Marshal(document)
		if err != nil {
			return nil, fmt.Errorf("error marshaling data to bulk index: %w", err)
		}
		buf.Write(dataJSON)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
