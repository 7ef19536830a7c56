// Package partition maps per-entity sequence numbers onto bounded storage
// partitions. Both the write and read paths go through this mapping so they
// can never disagree about where a row lives.
package partition

// Location returns the partition index and the offset within that partition
// for a sequence number. Sequence numbers start at 1; partition indexes and
// offsets start at 0. The partition size is fixed for the lifetime of a
// keyspace.
func Location(seqNr, size int64) (partition, offset int64) {
	partition = (seqNr - 1) / size
	offset = (seqNr - 1) % size
	return partition, offset
}

// PartitionNr returns only the partition index for a sequence number.
func PartitionNr(seqNr, size int64) int64 {
	return (seqNr - 1) / size
}

// FirstSequenceNr returns the lowest sequence number stored in a partition.
func FirstSequenceNr(partition, size int64) int64 {
	return partition*size + 1
}

// LastSequenceNr returns the highest sequence number stored in a partition.
func LastSequenceNr(partition, size int64) int64 {
	return (partition + 1) * size
}

// SpansBoundary reports whether the inclusive sequence range [from, to]
// crosses a partition boundary.
func SpansBoundary(from, to, size int64) bool {
	return PartitionNr(from, size) != PartitionNr(to, size)
}
