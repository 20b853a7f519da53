package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"openbst/internal/identity"
	"openbst/internal/nodestore"
)

// nameSep separates the step, kind and hash in node names.
const nameSep = "__"

// NodeName builds the stored name of a step: "<step>__<kind>__<hash>".
func NodeName(step int, id identity.Identity) string {
	return fmt.Sprintf("%02d%s%s%s%s", step, nameSep, id.Kind, nameSep, id.Hash)
}

// branchName disambiguates a name already used under a different parent.
func branchName(base, parent string) string {
	sum := sha256.Sum256([]byte(parent))
	return base + nameSep + "b" + hex.EncodeToString(sum[:4])
}

// ParseStep extracts the step number from a node name. ROOT is step 0.
func ParseStep(name string) (int, error) {
	if name == nodestore.Root {
		return 0, nil
	}
	prefix, _, ok := strings.Cut(name, nameSep)
	if !ok {
		return 0, fmt.Errorf("node name %q has no step prefix", name)
	}
	step, err := strconv.Atoi(prefix)
	if err != nil || step < 0 {
		return 0, fmt.Errorf("node name %q has invalid step prefix %q", name, prefix)
	}
	return step, nil
}
