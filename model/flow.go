package model

import "fmt"

type NodeType string

const NODE_TYPE_MESSAGE NodeType = "message"
const NODE_TYPE_CALCULATOR NodeType = "calculator"
const NODE_TYPE_TRANSFORM NodeType = "transform"
const NODE_TYPE_AI_SINGLE NodeType = "ai_single"
const NODE_TYPE_AI_CHAT NodeType = "ai_chat"
const NODE_TYPE_FORM NodeType = "form"
const NODE_TYPE_LOCATION NodeType = "location"
const NODE_TYPE_PAYMENT NodeType = "payment"
const NODE_TYPE_GROUP_JOIN NodeType = "group_join"
const NODE_TYPE_GROUP_LEAVE NodeType = "group_leave"
const NODE_TYPE_PERIODIC NodeType = "periodic_execution"
const NODE_TYPE_ENDPOINT NodeType = "endpoint"

var VALID_NODE_TYPES = []NodeType{
	NODE_TYPE_MESSAGE,
	NODE_TYPE_CALCULATOR,
	NODE_TYPE_TRANSFORM,
	NODE_TYPE_AI_SINGLE,
	NODE_TYPE_AI_CHAT,
	NODE_TYPE_FORM,
	NODE_TYPE_LOCATION,
	NODE_TYPE_PAYMENT,
	NODE_TYPE_GROUP_JOIN,
	NODE_TYPE_GROUP_LEAVE,
	NODE_TYPE_PERIODIC,
	NODE_TYPE_ENDPOINT,
}

func ValidateNodeType(nt string) error {
	for _, t := range VALID_NODE_TYPES {
		if string(t) == nt {
			return nil
		}
	}
	return fmt.Errorf("invalid node type %s", nt)
}

// Node is one typed step of a flow. Data carries the type-specific payload as
// published by the designer; handlers decode it into their own structs.
type Node struct {
	Id   string         `json:"id"`
	Type NodeType       `json:"type"`
	Data map[string]any `json:"data"`
}

// Edge connects Source to Target. SourceHandle disambiguates multiple outputs
// of one node (condition branches, button index, payment success/error).
type Edge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// Flow is the published, immutable graph definition for one bot.
type Flow struct {
	Id       string `json:"id"`
	BotId    string `json:"botId"`
	BotToken string `json:"botToken"`
	RootId   string `json:"rootId"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`

	nodesById map[string]*Node
	outEdges  map[string][]Edge
}

// Index builds the lookup maps. Must be called once after unmarshalling and
// before the flow is handed to the engine.
func (f *Flow) Index() {
	f.nodesById = make(map[string]*Node, len(f.Nodes))
	f.outEdges = make(map[string][]Edge)
	for i := range f.Nodes {
		f.nodesById[f.Nodes[i].Id] = &f.Nodes[i]
	}
	for _, e := range f.Edges {
		f.outEdges[e.Source] = append(f.outEdges[e.Source], e)
	}
}

func (f *Flow) Node(id string) (*Node, bool) {
	if f.nodesById == nil {
		f.Index()
	}
	n, ok := f.nodesById[id]
	return n, ok
}

// OutEdges returns the edges leaving a node in publication order.
func (f *Flow) OutEdges(id string) []Edge {
	if f.outEdges == nil {
		f.Index()
	}
	return f.outEdges[id]
}

func (f *Flow) Validate() error {
	if len(f.Nodes) == 0 {
		return fmt.Errorf("flow %s has no nodes", f.Id)
	}
	ids := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.Id == "" {
			return fmt.Errorf("flow %s contains a node without id", f.Id)
		}
		if ids[n.Id] {
			return fmt.Errorf("node id %s is duplicate", n.Id)
		}
		ids[n.Id] = true
		if err := ValidateNodeType(string(n.Type)); err != nil {
			return err
		}
	}
	for _, e := range f.Edges {
		if !ids[e.Source] {
			return fmt.Errorf("edge source %s not defined in flow", e.Source)
		}
		if !ids[e.Target] {
			return fmt.Errorf("edge target %s not defined in flow", e.Target)
		}
	}
	if f.RootId != "" && !ids[f.RootId] {
		return fmt.Errorf("no node with root id %s in flow", f.RootId)
	}
	return nil
}
