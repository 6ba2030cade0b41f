// Package config parses the process-level configuration a node needs:
// its own identifier, listen address, and the fixed peer map. Process
// bootstrapping is explicitly out of scope for the replication engine
// itself — this package is the injected configuration value the rest of
// the system depends on.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// Config holds one node's static configuration, resolved once at
// startup. The peer set is fixed for the process lifetime — dynamic
// membership is a non-goal.
type Config struct {
	NodeID string
	Addr   string
	// Peers maps every OTHER node id to its base URL
	// (e.g. "http://localhost:8081"). Does not include NodeID.
	Peers map[string]string
}

// ParsePeers parses a flag value of the form "id1=addr1,id2=addr2" into
// a peer map. An empty string yields an empty, non-nil map.
func ParsePeers(flagValue string) (map[string]string, error) {
	peers := make(map[string]string)
	if flagValue == "" {
		return peers, nil
	}
	for _, entry := range strings.Split(flagValue, ",") {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid peer entry %q: expected id=host:port", entry)
		}
		peers[parts[0]] = parts[1]
	}
	return peers, nil
}

// Membership returns the full, sorted set of node ids in the cluster:
// this node plus every configured peer.
func (c Config) Membership() []string {
	members := make([]string, 0, len(c.Peers)+1)
	members = append(members, c.NodeID)
	for id := range c.Peers {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}
