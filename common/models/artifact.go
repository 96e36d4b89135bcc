package models

import "encoding/json"

// WorkflowArtifact represents a file a workflow archived to object storage
type WorkflowArtifact struct {
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// to json
func (a *WorkflowArtifact) ToJson() ([]byte, error) {
	return json.Marshal(a)
}

// from json
func WorkflowArtifactFromJson(j []byte) (*WorkflowArtifact, error) {
	var a WorkflowArtifact
	err := json.Unmarshal(j, &a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
