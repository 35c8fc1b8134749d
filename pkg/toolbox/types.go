package toolbox

import (
	"encoding/json"
)

// Node and panel type discriminants emitted by the tree builder.
const (
	NodeTypeTabPanel       = "tabpanel"
	NodeTypePanel          = "panel"
	NodeTypeColumnAdjuster = "columnadjuster"
)

// Field type discriminants the core treats specially.
const (
	FieldTypeBlock                    = "block"
	FieldTypeAdditionalClasses        = "additionalClasses"
	FieldTypeAdditionalClassesChained = "additionalClassesChained"
)

// EditableNode is one resolved, visible config element.
type EditableNode struct {
	// Type is the field type discriminant (e.g. "input", "select", "block").
	Type string `json:"type"`

	// Name is the config element name.
	Name string `json:"name"`

	// Tab is the tab id this node belongs to, empty when untabbed.
	Tab string `json:"tab,omitempty"`

	// Label is the translated title.
	Label string `json:"label"`

	// Config is the type-specific field configuration.
	Config map[string]interface{} `json:"config"`

	// AdditionalClassesElement marks the additional CSS classes field types.
	AdditionalClassesElement bool `json:"additional_classes_element"`

	// Children is the resolved tree of a block element.
	Children *Tree `json:"children,omitempty"`
}

// Panel is one tab of a tab panel.
type Panel struct {
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Items []*EditableNode `json:"items"`
}

// TabPanel groups editable nodes by declared tab.
type TabPanel struct {
	Type  string  `json:"type"`
	Items []Panel `json:"items"`
}

// Tree is the result of building a set of config elements: either a flat,
// ordered node list or a tab panel.
type Tree struct {
	Nodes    []*EditableNode
	TabPanel *TabPanel
}

// IsTabbed reports whether the tree was bucketed into tabs.
func (t *Tree) IsTabbed() bool {
	return t != nil && t.TabPanel != nil
}

// IsEmpty reports whether the tree holds no nodes at all.
func (t *Tree) IsEmpty() bool {
	if t == nil {
		return true
	}
	if t.TabPanel != nil {
		for _, p := range t.TabPanel.Items {
			if len(p.Items) > 0 {
				return false
			}
		}
		return true
	}
	return len(t.Nodes) == 0
}

// Flatten returns every top-level node in output order, across panels when tabbed.
func (t *Tree) Flatten() []*EditableNode {
	if t == nil {
		return nil
	}
	if t.TabPanel == nil {
		return t.Nodes
	}
	var nodes []*EditableNode
	for _, p := range t.TabPanel.Items {
		nodes = append(nodes, p.Items...)
	}
	return nodes
}

// MarshalJSON encodes a flat tree as an array and a tabbed tree as the tab panel object.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t.TabPanel != nil {
		return json.Marshal(t.TabPanel)
	}
	if t.Nodes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Nodes)
}

// Element types of a headless payload.
const (
	ElementTypeBrick    = "brick"
	ElementTypeEditable = "editable"
)

// ElementPayload is the normalized, hash- and namespace-addressed
// representation of one rendered unit.
type ElementPayload struct {
	ElementType      string                 `json:"elementType"`
	ElementSubType   string                 `json:"elementSubType"`
	ElementHash      string                 `json:"elementHash"`
	ElementNamespace string                 `json:"elementNamespace"`
	Data             map[string]interface{} `json:"data"`
}
