package uid

import (
	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered 63-bit IDs unique per node.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator for the given node (0..1023). Each running
// instance must use a distinct node.
func NewSnowflake(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate returns a new ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
