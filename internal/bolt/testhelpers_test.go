package bolt

import "github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"

func streamCfg(cypher string, params map[string]any) boltdb.StreamConfig {
	return boltdb.StreamConfig{Cypher: cypher, Params: params, FetchSize: 1000}
}

func txCfgEmpty() boltdb.TxConfig {
	return boltdb.TxConfig{}
}
