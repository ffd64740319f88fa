package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"tracekg/internal/config"
	"tracekg/internal/errors"
	"tracekg/internal/logging"
	"tracekg/internal/model"
)

// Neo4j is the Bolt-backed Store. Placeholder endpoints created by edge
// upserts carry no `defined` flag; UpsertNode sets it, and every defined-node
// read filters on it.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
	retry    config.RetryConfig
	logger   *logging.Logger
}

var _ Store = (*Neo4j)(nil)

// NewNeo4j connects to the configured server and verifies connectivity.
func NewNeo4j(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI,
		neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "creating neo4j driver for "+cfg.Neo4j.URI, err)
	}

	s := &Neo4j{
		driver:   driver,
		database: cfg.Neo4j.Database,
		retry:    cfg.Retry,
		logger:   logger,
	}

	if err := s.withRetry(ctx, "verify connectivity", func() error {
		return driver.VerifyConnectivity(ctx)
	}); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Neo4j) withRetry(ctx context.Context, what string, op func() error) error {
	return retryOp(ctx, s.retry, s.logger, what, neo4jRetryable, op)
}

// neo4jRetryable reports whether an operation failure is worth another
// attempt. Client-side failures (bad Cypher, unpackable parameters) are
// permanent and retrying them only burns the backoff budget.
func neo4jRetryable(err error) bool {
	return neo4j.IsConnectivityError(err) || neo4j.IsRetryable(err)
}

// retryOp runs op with bounded exponential backoff. Exhaustion wraps the
// last error as STORE_UNAVAILABLE; errors the retryable predicate rejects
// surface immediately and unwrapped.
func retryOp(ctx context.Context, cfg config.RetryConfig, logger *logging.Logger, what string,
	retryable func(error) bool, op func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(cfg.BaseDelayMs) * time.Millisecond

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		last = op()
		if last == nil {
			return nil
		}
		if retryable != nil && !retryable(last) {
			return last
		}
		if attempt == attempts {
			break
		}
		logger.Warn("store operation failed, retrying", map[string]interface{}{
			"operation": what,
			"attempt":   attempt,
			"error":     last.Error(),
		})
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.StoreUnavailable, what, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return errors.Wrap(errors.StoreUnavailable, what+" after retries", last)
}

func (s *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

func (s *Neo4j) UpsertNode(ctx context.Context, n model.Node) (bool, error) {
	query := fmt.Sprintf(`
		MERGE (n:%s {key: $key})
		SET n += $props, n.defined = true
	`, n.Label)

	var created bool
	err := s.withRetry(ctx, "upsert node", func() error {
		session := s.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, map[string]interface{}{
			"key":   n.Key,
			"props": nodeProps(n),
		})
		if err != nil {
			return err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return err
		}
		created = summary.Counters().NodesCreated() > 0
		return nil
	})
	return created, err
}

func (s *Neo4j) UpsertEdge(ctx context.Context, e model.Edge) (bool, error) {
	query := fmt.Sprintf(`
		MERGE (src:%s {key: $srcKey})
		MERGE (dst:%s {key: $dstKey})
		MERGE (src)-[r:%s]->(dst)
		SET r += $props
	`, e.SrcLabel, e.DstLabel, e.Type)

	props := make(map[string]interface{}, len(e.Props))
	for k, v := range e.Props {
		props[k] = propValue(v)
	}

	var created bool
	err := s.withRetry(ctx, "upsert edge", func() error {
		session := s.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, map[string]interface{}{
			"srcKey": e.SrcKey,
			"dstKey": e.DstKey,
			"props":  props,
		})
		if err != nil {
			return err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return err
		}
		created = summary.Counters().RelationshipsCreated() > 0
		return nil
	})
	return created, err
}

func (s *Neo4j) Clear(ctx context.Context) error {
	return s.withRetry(ctx, "clear graph", func() error {
		session := s.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)

		result, err := session.Run(ctx, `MATCH (n) DETACH DELETE n`, nil)
		if err != nil {
			return err
		}
		_, err = result.Consume(ctx)
		return err
	})
}

func (s *Neo4j) NodeExists(ctx context.Context, label model.Label, key string) (bool, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s {key: $key})
		WHERE n.defined = true
		RETURN count(n) > 0 AS found
	`, label)

	var found bool
	err := s.withRetry(ctx, "node exists", func() error {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, map[string]interface{}{"key": key})
		if err != nil {
			return err
		}
		if result.Next(ctx) {
			v, _ := result.Record().Get("found")
			found, _ = v.(bool)
		}
		return result.Err()
	})
	return found, err
}

func (s *Neo4j) Node(ctx context.Context, label model.Label, key string) (*model.Node, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s {key: $key})
		WHERE n.defined = true
		RETURN properties(n) AS props
	`, label)

	var node *model.Node
	err := s.withRetry(ctx, "get node", func() error {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, map[string]interface{}{"key": key})
		if err != nil {
			return err
		}
		node = nil
		if result.Next(ctx) {
			props, _ := result.Record().Get("props")
			node = recordNode(label, key, props)
		}
		return result.Err()
	})
	return node, err
}

func (s *Neo4j) NodesByLabel(ctx context.Context, label model.Label) ([]model.Node, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s)
		WHERE n.defined = true
		RETURN n.key AS key, properties(n) AS props
		ORDER BY n.key
	`, label)

	var out []model.Node
	err := s.withRetry(ctx, "nodes by label", func() error {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return err
		}
		out = nil
		for result.Next(ctx) {
			record := result.Record()
			key, _ := record.Get("key")
			props, _ := record.Get("props")
			keyStr, _ := key.(string)
			out = append(out, *recordNode(label, keyStr, props))
		}
		return result.Err()
	})
	return out, err
}

func (s *Neo4j) EdgesFrom(ctx context.Context, label model.Label, key string) ([]model.Edge, error) {
	query := fmt.Sprintf(`
		MATCH (src:%s {key: $key})-[r]->(dst)
		RETURN type(r) AS type, labels(dst) AS otherLabels, dst.key AS otherKey, properties(r) AS props
	`, label)

	return s.queryEdges(ctx, "edges from", query, map[string]interface{}{"key": key},
		func(record edgeRecord) model.Edge {
			return model.Edge{
				Type:     model.EdgeType(record.typ),
				SrcLabel: label, SrcKey: key,
				DstLabel: record.otherLabel, DstKey: record.otherKey,
				Props: record.props,
			}
		})
}

func (s *Neo4j) EdgesTo(ctx context.Context, label model.Label, key string) ([]model.Edge, error) {
	query := fmt.Sprintf(`
		MATCH (src)-[r]->(dst:%s {key: $key})
		RETURN type(r) AS type, labels(src) AS otherLabels, src.key AS otherKey, properties(r) AS props
	`, label)

	return s.queryEdges(ctx, "edges to", query, map[string]interface{}{"key": key},
		func(record edgeRecord) model.Edge {
			return model.Edge{
				Type:     model.EdgeType(record.typ),
				SrcLabel: record.otherLabel, SrcKey: record.otherKey,
				DstLabel: label, DstKey: key,
				Props: record.props,
			}
		})
}

func (s *Neo4j) EdgesByType(ctx context.Context, t model.EdgeType) ([]model.Edge, error) {
	query := fmt.Sprintf(`
		MATCH (src)-[r:%s]->(dst)
		RETURN labels(src) AS srcLabels, src.key AS srcKey,
		       labels(dst) AS dstLabels, dst.key AS dstKey,
		       properties(r) AS props
	`, t)

	var out []model.Edge
	err := s.withRetry(ctx, "edges by type", func() error {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return err
		}
		out = nil
		for result.Next(ctx) {
			record := result.Record()
			srcLabels, _ := record.Get("srcLabels")
			srcKey, _ := record.Get("srcKey")
			dstLabels, _ := record.Get("dstLabels")
			dstKey, _ := record.Get("dstKey")
			props, _ := record.Get("props")

			srcKeyStr, _ := srcKey.(string)
			dstKeyStr, _ := dstKey.(string)
			out = append(out, model.Edge{
				Type:     t,
				SrcLabel: firstLabel(srcLabels), SrcKey: srcKeyStr,
				DstLabel: firstLabel(dstLabels), DstKey: dstKeyStr,
				Props: propsMap(props),
			})
		}
		return result.Err()
	})
	sortEdges(out)
	return out, err
}

func (s *Neo4j) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		Nodes: make(map[model.Label]int),
		Edges: make(map[model.EdgeType]int),
	}

	err := s.withRetry(ctx, "stats", func() error {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)

		result, err := session.Run(ctx, `
			MATCH (n) WHERE n.defined = true
			UNWIND labels(n) AS label
			RETURN label, count(*) AS n
		`, nil)
		if err != nil {
			return err
		}
		stats.Nodes = make(map[model.Label]int)
		for result.Next(ctx) {
			record := result.Record()
			label, _ := record.Get("label")
			count, _ := record.Get("n")
			labelStr, _ := label.(string)
			countInt, _ := count.(int64)
			stats.Nodes[model.Label(labelStr)] = int(countInt)
		}
		if err := result.Err(); err != nil {
			return err
		}

		result, err = session.Run(ctx, `
			MATCH ()-[r]->()
			RETURN type(r) AS type, count(*) AS n
		`, nil)
		if err != nil {
			return err
		}
		stats.Edges = make(map[model.EdgeType]int)
		for result.Next(ctx) {
			record := result.Record()
			typ, _ := record.Get("type")
			count, _ := record.Get("n")
			typStr, _ := typ.(string)
			countInt, _ := count.(int64)
			stats.Edges[model.EdgeType(typStr)] = int(countInt)
		}
		return result.Err()
	})
	return stats, err
}

func (s *Neo4j) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type edgeRecord struct {
	typ        string
	otherLabel model.Label
	otherKey   string
	props      map[string]interface{}
}

func (s *Neo4j) queryEdges(ctx context.Context, what, query string, params map[string]interface{},
	build func(edgeRecord) model.Edge) ([]model.Edge, error) {

	var out []model.Edge
	err := s.withRetry(ctx, what, func() error {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, params)
		if err != nil {
			return err
		}
		out = nil
		for result.Next(ctx) {
			record := result.Record()
			typ, _ := record.Get("type")
			labels, _ := record.Get("otherLabels")
			otherKey, _ := record.Get("otherKey")
			props, _ := record.Get("props")

			typStr, _ := typ.(string)
			otherKeyStr, _ := otherKey.(string)
			out = append(out, build(edgeRecord{
				typ:        typStr,
				otherLabel: firstLabel(labels),
				otherKey:   otherKeyStr,
				props:      propsMap(props),
			}))
		}
		return result.Err()
	})
	sortEdges(out)
	return out, err
}

// nodeProps is the parameter map for a node upsert, without the identity
// and bookkeeping keys.
func nodeProps(n model.Node) map[string]interface{} {
	props := make(map[string]interface{}, len(n.Props))
	for k, v := range n.Props {
		if k == "key" || k == "defined" {
			continue
		}
		props[k] = propValue(v)
	}
	return props
}

// propValue converts a batch property into a legal Neo4j property value.
// Neo4j properties hold primitives and homogeneous arrays of primitives;
// structured values (class attribute lists, both typed and as decoded from
// a snapshot) are stored as JSON strings, the same encoding the SQLite
// backend persists.
func propValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, bool, string, int, int32, int64, float32, float64:
		return val
	case []string, []bool, []int, []int64, []float64:
		return val
	case []interface{}:
		for _, elem := range val {
			switch elem.(type) {
			case nil, bool, string, int, int32, int64, float32, float64:
			default:
				return jsonProp(v)
			}
		}
		return val
	default:
		return jsonProp(v)
	}
}

func jsonProp(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func recordNode(label model.Label, key string, rawProps interface{}) *model.Node {
	props := propsMap(rawProps)
	delete(props, "key")
	delete(props, "defined")
	if len(props) == 0 {
		props = nil
	}
	return &model.Node{Label: label, Key: key, Props: props}
}

func propsMap(raw interface{}) map[string]interface{} {
	props, _ := raw.(map[string]interface{})
	if props == nil {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func firstLabel(raw interface{}) model.Label {
	labels, _ := raw.([]interface{})
	for _, l := range labels {
		if s, ok := l.(string); ok {
			return model.Label(s)
		}
	}
	return ""
}

func sortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Identity() < edges[j].Identity()
	})
}
