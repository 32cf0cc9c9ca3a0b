package world

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Digest is a short fingerprint of the mutable world state: node locations,
// states and discovery plus agent inventories. Two worlds that replayed the
// same command log end up with the same digest.
func (w *World) Digest() string {
	h := sha256.New()
	for _, id := range w.g.NodeIDs() {
		n := w.g.NodeByID(id)
		fmt.Fprintf(h, "n|%s|%s|%t|", n.ID, n.LocationID, n.Discovered)
		keys := make([]string, 0, len(n.States))
		for k := range n.States {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "%s=%t,", k, n.States[k])
		}
		coop := append([]string(nil), n.CoopModified...)
		sort.Strings(coop)
		fmt.Fprintf(h, "|%s\n", strings.Join(coop, ","))
	}
	for _, id := range w.AgentIDs() {
		a := w.agents[id]
		fmt.Fprintf(h, "a|%s|%s|%.3f|%d|%s|%s\n",
			a.ID, a.LocationID, a.CurrentWeight, a.Mode,
			strings.Join(a.Inventory, ","), strings.Join(a.Abilities(), ","))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
