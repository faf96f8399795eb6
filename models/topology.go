package models

import (
	"fmt"
	"strings"
)

// Topology is the geometric category of an intersection. It fixes how many
// signal channels an intersection has.
type Topology string

const (
	FourWay    Topology = "Four-Way"
	TJunction  Topology = "T-Junction"
	Diamond    Topology = "Diamond"
	Diamond6   Topology = "Diamond-6"
	Roundabout Topology = "Roundabout"
)

var channelCounts = map[Topology]int{
	FourWay:    4,
	TJunction:  3,
	Diamond:    4,
	Diamond6:   6,
	Roundabout: 4,
}

// Topologies lists every supported topology in display order.
var Topologies = []Topology{FourWay, TJunction, Diamond, Diamond6, Roundabout}

var topologyAliases = map[string]Topology{
	"four-way":             FourWay,
	"fourway":              FourWay,
	"four way":             FourWay,
	"t-junction":           TJunction,
	"tjunction":            TJunction,
	"t junction":           TJunction,
	"diamond":              Diamond,
	"diamond intersection": Diamond,
	"diamond-6":            Diamond6,
	"diamond 6":            Diamond6,
	"six-phase diamond":    Diamond6,
	"roundabout":           Roundabout,
}

// ParseTopology resolves a UI label such as "Diamond Intersection" to a
// Topology. Matching is case-insensitive.
func ParseTopology(s string) (Topology, error) {
	t, ok := topologyAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown intersection type %q", s)
	}
	return t, nil
}

func (t Topology) ChannelCount() int {
	return channelCounts[t]
}

func (t Topology) Valid() bool {
	_, ok := channelCounts[t]
	return ok
}

func (t Topology) String() string {
	return string(t)
}
