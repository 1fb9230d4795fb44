package worldstore

// Bucket names for the bbolt object-collection store. Each is a
// top-level bucket; an atomic multi-collection transaction is a
// single bbolt.Update touching any subset of these.
var (
	bucketSchema    = []byte("schema")
	bucketMeta      = []byte("meta")
	bucketAttention = []byte("dungeonState")
	bucketLevels    = []byte("levels")
	bucketTasks     = []byte("tasks")
)

func poolKey(p PoolKind) []byte {
	return []byte(p)
}
