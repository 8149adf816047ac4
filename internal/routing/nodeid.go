package routing

import (
	"encoding/binary"

	"github.com/tinode/snowflake"

	"github.com/kprice/routefabric/internal/address"
)

// SnowflakeIDGenerator builds an IDGenerator backed by
// github.com/tinode/snowflake — a direct teacher dependency (go.mod) used
// upstream for globally-unique, time-ordered message/user ids — so that
// externally-created cluster nodes get a time-ordered 8-byte identifier
// instead of a process-local counter. workerID distinguishes this
// process from any peer process sharing the same cluster bridge (see
// internal/bridge).
func SnowflakeIDGenerator(workerID uint32) (IDGenerator, error) {
	node, err := snowflake.NewNode(int64(workerID))
	if err != nil {
		return nil, err
	}
	return func() address.NodeID {
		id := node.Generate().Int64()
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(id))
		return address.NodeID(buf[:])
	}, nil
}
