package cassandra

import "fmt"

func createKeyspaceStmt(keyspace string, replicationFactor int) string {
	return fmt.Sprintf(`
	CREATE KEYSPACE IF NOT EXISTS %s
	WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}
	`, keyspace, replicationFactor)
}

// The messages table is the journal: one partition per
// (persistence_id, partition_nr) pair, rows clustered by sequence_nr so
// replay is a single ordered range scan per partition.
func createMessagesStmt(keyspace string) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s.messages (
		persistence_id text,
		partition_nr bigint,
		sequence_nr bigint,
		payload blob,
		ser_id int,
		ser_manifest text,
		tags set<text>,
		write_time timestamp,
		writer_uuid text,
		PRIMARY KEY ((persistence_id, partition_nr), sequence_nr)
	)`, keyspace)
}

// tag_views is the denormalized tag index, ordered by a timeuuid token.
func createTagViewsStmt(keyspace string) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s.tag_views (
		tag text,
		token timeuuid,
		persistence_id text,
		sequence_nr bigint,
		PRIMARY KEY ((tag), token)
	)`, keyspace)
}

// metadata holds one delete marker per persistence id.
func createMetadataStmt(keyspace string) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s.metadata (
		persistence_id text PRIMARY KEY,
		deleted_to bigint
	)`, keyspace)
}
