package exporter

import (
	"encoding/xml"
	"fmt"

	"blueprint-mcp/backend/pkg/models"
)

// bpmnElementNames maps step types to their BPMN element names. Types
// outside the map render under their own name, which keeps ids and
// references intact for vocabulary extensions.
var bpmnElementNames = map[string]string{
	"start":    "startEvent",
	"end":      "endEvent",
	"decision": "exclusiveGateway",
	"task":     "task",
}

type bpmnDefinitions struct {
	XMLName xml.Name    `xml:"definitions"`
	Xmlns   string      `xml:"xmlns,attr"`
	ID      string      `xml:"id,attr"`
	Process bpmnProcess `xml:"process"`
}

type bpmnProcess struct {
	ID      string             `xml:"id,attr"`
	LaneSet *bpmnLaneSet       `xml:"laneSet"`
	Nodes   []bpmnFlowNode
	Flows   []bpmnSequenceFlow `xml:"sequenceFlow"`
}

type bpmnLaneSet struct {
	Lanes []bpmnLane `xml:"lane"`
}

type bpmnLane struct {
	ID    string   `xml:"id,attr"`
	Name  string   `xml:"name,attr"`
	Nodes []string `xml:"flowNodeRef"`
}

type bpmnFlowNode struct {
	XMLName   xml.Name
	ID        string `xml:"id,attr"`
	Name      string `xml:"name,attr"`
	Connector string `xml:"connector,attr,omitempty"`
}

type bpmnSequenceFlow struct {
	ID        string `xml:"id,attr"`
	Name      string `xml:"name,attr,omitempty"`
	SourceRef string `xml:"sourceRef,attr"`
	TargetRef string `xml:"targetRef,attr"`
}

// renderBPMN produces a BPMN-like XML document: one flow node per step
// tagged by its type, one sequenceFlow per transition, and one lane per
// actor referencing the steps it performs. Interchange oriented: not an
// exact round-trip format, but every id and reference is preserved.
func (e *Exporter) renderBPMN(wf *models.Workflow) (string, error) {
	tmpl, err := e.catalog.Template("bpmn")
	if err != nil {
		return "", err
	}

	proc := bpmnProcess{ID: wf.WorkflowID}

	if len(wf.Actors) > 0 {
		laneSet := &bpmnLaneSet{}
		for _, a := range wf.Actors {
			lane := bpmnLane{ID: "lane_" + a.ActorID, Name: a.Role}
			for _, s := range wf.Steps {
				if s.Actor == a.ActorID {
					lane.Nodes = append(lane.Nodes, s.StepID)
				}
			}
			laneSet.Lanes = append(laneSet.Lanes, lane)
		}
		proc.LaneSet = laneSet
	}

	for _, s := range wf.Steps {
		name := bpmnElementNames[s.Type]
		if name == "" {
			name = s.Type
		}
		proc.Nodes = append(proc.Nodes, bpmnFlowNode{
			XMLName:   xml.Name{Local: name},
			ID:        s.StepID,
			Name:      s.Label,
			Connector: s.Connector,
		})
	}

	for i, t := range wf.Transitions {
		proc.Flows = append(proc.Flows, bpmnSequenceFlow{
			ID:        fmt.Sprintf("flow_%d", i+1),
			Name:      t.Condition,
			SourceRef: t.FromStep,
			TargetRef: t.ToStep,
		})
	}

	doc := bpmnDefinitions{
		Xmlns:   tmpl.BPMNNamespace,
		ID:      "definitions_" + wf.WorkflowID,
		Process: proc,
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal workflow to BPMN: %w", err)
	}
	return xml.Header + string(data) + "\n", nil
}
