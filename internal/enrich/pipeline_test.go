package enrich

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type record struct {
	ID     int
	Fields map[string]any
}

func newRecord(id int) record {
	return record{ID: id, Fields: make(map[string]any)}
}

func (r *record) set(k string, v any) {
	r.Fields[k] = v
}

func setField(key string, val any) Step[record] {
	return func(_ context.Context, r *record) error {
		r.set(key, val)
		return nil
	}
}

func failing(_ context.Context, _ *record) error {
	return errors.New("lookup failed")
}

func TestPipeline_Run(t *testing.T) {
	tests := []struct {
		name         string
		stages       []Stage[record]
		wantFields   map[string]any
		wantFailures int
	}{
		{
			name:       "single step",
			stages:     []Stage[record]{NewStage("one", setField("lat", -22.9))},
			wantFields: map[string]any{"lat": -22.9},
		},
		{
			name: "steps in one stage",
			stages: []Stage[record]{
				NewStage("coords", setField("lat", 1), setField("lon", 2)),
			},
			wantFields: map[string]any{"lat": 1, "lon": 2},
		},
		{
			name: "failing stage does not stop the next",
			stages: []Stage[record]{
				NewStage[record]("geocode", failing),
				NewStage("flag", setField("approximate", true)),
			},
			wantFields:   map[string]any{"approximate": true},
			wantFailures: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []record{newRecord(1), newRecord(2)}
			rep := NewPipeline(tt.stages...).Run(context.Background(), items)

			if rep.Items != 2 {
				t.Errorf("Items = %d, want 2", rep.Items)
			}
			if rep.Failures != tt.wantFailures {
				t.Errorf("Failures = %d, want %d", rep.Failures, tt.wantFailures)
			}
			for _, it := range items {
				if !reflect.DeepEqual(it.Fields, tt.wantFields) {
					t.Errorf("item %d: got %+v, want %+v", it.ID, it.Fields, tt.wantFields)
				}
			}
		})
	}
}

func TestPipeline_RunIsSequential(t *testing.T) {
	var order []string
	step := func(tag string) Step[record] {
		return func(_ context.Context, r *record) error {
			order = append(order, tag+string(rune('0'+r.ID)))
			return nil
		}
	}
	items := []record{newRecord(1), newRecord(2)}
	NewPipeline(NewStage("a", step("a")), NewStage("b", step("b"))).Run(context.Background(), items)

	want := []string{"a1", "b1", "a2", "b2"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestPipeline_StepsOfAStageRunInOrder(t *testing.T) {
	var order []string
	step := func(tag string) Step[record] {
		return func(_ context.Context, _ *record) error {
			order = append(order, tag)
			return nil
		}
	}
	items := []record{newRecord(1)}
	NewPipeline(NewStage("coords", step("lat"), step("lon"), step("flag"))).Run(context.Background(), items)

	want := []string{"lat", "lon", "flag"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}
