// Package docker runs disposable ClickHouse servers that stand in for the
// data sources of a sharded deployment.
//
// It backs the integration tests: each Shard is a separate container, so a
// test can route statements across real physical databases and observe how
// they are grouped and executed.
//
//	shards := []*docker.Shard{
//		docker.NewShard(docker.Options{Database: "db0"}),
//		docker.NewShard(docker.Options{Database: "db1"}),
//	}
//
// Containers are started through testcontainers and need a reachable Docker
// daemon.
package docker
