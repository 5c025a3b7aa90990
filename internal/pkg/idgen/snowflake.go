package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// defaultNodeID serves single-replica deployments. Replicated services
// pin distinct node IDs through Initialize so two pods never mint the
// same ID.
const defaultNodeID = 1

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Initialize pins the Snowflake node ID. Call it at startup, before any
// IDs are handed out; the node ID cannot change once the generator is
// running.
func Initialize(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()
	if node != nil {
		return fmt.Errorf("id generator already initialized")
	}
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	node = n
	return nil
}

// RequestID returns a fresh correlation ID for logs and response headers.
// The req_ prefix keeps these recognizable when they show up in bug
// reports next to upstream identifiers.
func RequestID() string {
	return "req_" + generate().String()
}

func generate() snowflake.ID {
	mu.Lock()
	if node == nil {
		// Tests and one-off tools reach here without startup wiring
		n, err := snowflake.NewNode(defaultNodeID)
		if err != nil {
			// NewNode fails only for node IDs outside [0, 1023]
			mu.Unlock()
			panic(err)
		}
		node = n
	}
	n := node
	mu.Unlock()
	return n.Generate()
}
