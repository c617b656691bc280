package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Wire types for the optimize endpoint.

// FlexBool accepts a JSON boolean or a case-insensitive "true"/"false" string.
// Any other string is false; numbers are true when non-zero.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = FlexBool(t)
	case string:
		*b = FlexBool(strings.EqualFold(strings.TrimSpace(t), "true"))
	case float64:
		*b = t != 0
	default:
		return fmt.Errorf("cannot use %s as boolean", string(data))
	}
	return nil
}

// FlexString accepts a JSON string or number and keeps its text.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// ServiceTime overrides the computed handling time, in minutes, when > 0.
	ServiceTime     float64 `json:"serviceTime,omitempty"`
	TimeWindowStart *int    `json:"timeWindowStart,omitempty"`
	TimeWindowEnd   *int    `json:"timeWindowEnd,omitempty"`
}

type VehicleIn struct {
	ID       FlexString `json:"id"`
	Capacity int        `json:"capacity"`
}

// OptimizeRequest is the body of POST /v1/optimize. Pointer fields are nil
// when the caller left them out so tenant defaults can apply.
type OptimizeRequest struct {
	Locations        []Location  `json:"locations"`
	Vehicles         []VehicleIn `json:"vehicles"`
	Demands          []int       `json:"demands"`
	UseTimeWindows   FlexBool    `json:"useTimeWindows"`
	IncludeGeometry  *bool       `json:"includeGeometry,omitempty"`
	TimeLimitSeconds *int        `json:"timeLimitSeconds,omitempty"`
	TrafficFactor    *float64    `json:"trafficFactor,omitempty"`
	Metaheuristic    string      `json:"metaheuristic,omitempty"`
	FirstSolution    string      `json:"firstSolution,omitempty"`
	Seed             int64       `json:"seed,omitempty"`
	SolveID          string      `json:"solveId,omitempty"`
}

// UnmarshalJSON also accepts the snake_case spellings include_geometry,
// time_limit_seconds and traffic_factor. The camelCase field wins when both
// are present.
func (r *OptimizeRequest) UnmarshalJSON(data []byte) error {
	type plain OptimizeRequest
	var aux struct {
		plain
		IncludeGeometrySnake  *bool    `json:"include_geometry"`
		TimeLimitSecondsSnake *int     `json:"time_limit_seconds"`
		TrafficFactorSnake    *float64 `json:"traffic_factor"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = OptimizeRequest(aux.plain)
	if r.IncludeGeometry == nil {
		r.IncludeGeometry = aux.IncludeGeometrySnake
	}
	if r.TimeLimitSeconds == nil {
		r.TimeLimitSeconds = aux.TimeLimitSecondsSnake
	}
	if r.TrafficFactor == nil {
		r.TrafficFactor = aux.TrafficFactorSnake
	}
	return nil
}

type RouteOut struct {
	VehicleID           string      `json:"vehicleId"`
	RouteIndices        []int       `json:"routeIndices"`
	LoadCarried         int         `json:"loadCarried"`
	CumulativeLoads     []int       `json:"cumulativeLoads"`
	DistanceKm          float64     `json:"distanceKm"`
	DurationSeconds     int         `json:"durationSeconds"`
	ArrivalTimesSeconds []int       `json:"arrivalTimesSeconds"`
	ServiceTimesSeconds []int       `json:"serviceTimesSeconds"`
	RouteGeometry       [][]float64 `json:"routeGeometry,omitempty"`
}

type Summary struct {
	VehiclesUsed    int     `json:"vehiclesUsed"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
}

type OptimizeResponse struct {
	SolveID string     `json:"solveId"`
	Status  string     `json:"status"`
	Result  []RouteOut `json:"result"`
	Summary Summary    `json:"summary"`
}
