package explorer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChartSpec describes how a result set should be rendered. chart_type is one
// of line, bar, scatter, pie, or table.
type ChartSpec struct {
	ChartType string     `json:"chart_type"`
	XAxis     string     `json:"x_axis,omitempty"`
	YAxis     StringList `json:"y_axis,omitempty"`
	Title     string     `json:"title"`
	ColorBy   string     `json:"color_by,omitempty"`
}

// StringList accepts either a JSON string or an array of strings. The model
// returns a bare string for single-series charts and a list for multi-series.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("y_axis must be a string or list of strings: %w", err)
	}
	*l = StringList(many)
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

// extractJSON pulls the outermost JSON object out of a model response,
// tolerating fences and surrounding prose.
func extractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return raw[start : end+1], nil
}

func parseChartSpec(raw string) (ChartSpec, error) {
	obj, err := extractJSON(raw)
	if err != nil {
		return ChartSpec{}, err
	}
	var spec ChartSpec
	if err := json.Unmarshal([]byte(obj), &spec); err != nil {
		return ChartSpec{}, fmt.Errorf("parse chart spec: %w", err)
	}
	if spec.ChartType == "" {
		spec.ChartType = "bar"
	}
	if spec.Title == "" {
		spec.Title = "Data Visualization"
	}
	return spec, nil
}
