package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// =============================================================================
// Resource Naming Functions
// =============================================================================

// ContainerName generates the container name for a node in a network.
// Pattern: {prefix}-n{networkID}-{nodeName}
//
// Example:
//
//	ContainerName("polar", 1, "alice") // returns "polar-n1-alice"
func ContainerName(prefix string, networkID int, nodeName string) string {
	return fmt.Sprintf("%s-n%d-%s", prefix, networkID, nodeName)
}

// NetworkPath derives the working directory of a network from its ID.
// It is a pure function of the root and the ID, so deriving it again for an
// already current path yields the same value.
//
// Example:
//
//	NetworkPath("/home/u/.polar/networks", 3) // returns "/home/u/.polar/networks/3"
func NetworkPath(root string, networkID int) string {
	return filepath.Join(root, strconv.Itoa(networkID))
}

// VolumeDirName returns the directory under volumes/ used by an implementation.
func VolumeDirName(impl Implementation) string {
	return strings.ToLower(string(impl))
}

// VolumePath returns the slash-separated node volume directory relative to
// the network path, e.g. "volumes/lnd/alice".
func VolumePath(impl Implementation, nodeName string) string {
	return path.Join("volumes", VolumeDirName(impl), nodeName)
}

// imageNames maps implementations to their image names in the repository.
var imageNames = map[Implementation]string{
	ImplBitcoind:   "bitcoind",
	ImplLND:        "lnd",
	ImplCLightning: "clightning",
	ImplEclair:     "eclair",
}

// ImageName returns the image reference for a node implementation.
//
// Example:
//
//	ImageName("polarlightning", ImplLND, "0.10.0-beta") // returns "polarlightning/lnd:0.10.0-beta"
func ImageName(repo string, impl Implementation, version string) string {
	name, ok := imageNames[impl]
	if !ok {
		name = strings.ToLower(string(impl))
	}
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s/%s:%s", repo, name, version)
}
