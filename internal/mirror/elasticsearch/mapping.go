package elasticsearch

// DefaultIndexName is the index car documents live in.
const DefaultIndexName = "cars"

func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "dynamic": "strict",
    "properties": {
      "id":               { "type": "keyword" },
      "brand":            { "type": "keyword" },
      "model":            { "type": "keyword" },
      "manufacture_year": { "type": "integer" },
      "fuel_type":        { "type": "keyword" },
      "image_url":        { "type": "keyword", "index": false },
      "version":          { "type": "long" }
    }
  }
}`
}
