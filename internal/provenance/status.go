package provenance

import (
	"errors"
	"fmt"
)

// Status is the classification of a requested step against the tree.
type Status int

const (
	// StatusRootNode starts a new tree root. Computed.
	StatusRootNode Status = iota + 1
	// StatusNewNode branches under the current parent. Computed.
	StatusNewNode
	// StatusModifiedCurrentNode replaces a node of the same kind with new
	// settings, attaching under that node's parent. Computed.
	StatusModifiedCurrentNode
	// StatusCurrentNode repeats the step the session sits on. No-op.
	StatusCurrentNode
	// StatusAncestorNode returns to an identical step up the chain.
	StatusAncestorNode
	// StatusOldRootNode returns to an existing root after a reset.
	StatusOldRootNode
	// StatusChildNode descends into an existing child of the parent.
	StatusChildNode
)

// ErrInvalidStatus indicates a status outside the known set. It signals a
// programming error, never bad input.
var ErrInvalidStatus = errors.New("invalid process status")

var statusNames = map[Status]string{
	StatusRootNode:            "ROOTNODE",
	StatusNewNode:             "NEWNODE",
	StatusModifiedCurrentNode: "MODIFIEDCURRENTNODE",
	StatusCurrentNode:         "CURRENTNODE",
	StatusAncestorNode:        "ANCESTORNODE",
	StatusOldRootNode:         "OLDROOTNODE",
	StatusChildNode:           "CHILDNODE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Computes reports whether the classification requires running the correction.
func (s Status) Computes() bool {
	switch s {
	case StatusRootNode, StatusNewNode, StatusModifiedCurrentNode:
		return true
	default:
		return false
	}
}
