package kernelobjects

// Storage identifies where an object's backing memory comes from.
// The choice changes allocation behavior only; the operational
// contract of every object is identical across strategies.
type Storage uint8

const (
	// StorageDynamic objects allocate their payload buffer internally
	// when created.
	StorageDynamic Storage = iota

	// StorageStatic objects use a fixed backing slice supplied by the
	// caller at construction. The library performs no allocation.
	StorageStatic

	// StorageExternal objects start uncreated and bind a
	// caller-supplied buffer in a later Create call.
	StorageExternal
)

func (s Storage) String() string {
	switch s {
	case StorageDynamic:
		return "dynamic"
	case StorageStatic:
		return "static"
	case StorageExternal:
		return "external"
	}
	return "unknown"
}
