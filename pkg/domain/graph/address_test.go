package graph

import (
	"reflect"
	"testing"

	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

func addressFixture() []*task.Task {
	return []*task.Task{
		{ProjectID: "p", ProjectSequence: 1, GlobalID: 101},
		{ProjectID: "p", ProjectSequence: 2, GlobalID: 102},
		{ProjectID: "p", ProjectSequence: 3, GlobalID: 103},
	}
}

func TestDetectScheme(t *testing.T) {
	tasks := addressFixture()

	tests := []struct {
		name    string
		taskIDs []int64
		want    AddressScheme
	}{
		{"empty list", nil, SchemeProjectSequence},
		{"all match sequences", []int64{1, 3}, SchemeProjectSequence},
		{"single match", []int64{2}, SchemeProjectSequence},
		{"none match", []int64{101, 102}, SchemeGlobal},
		{"strict subset matches", []int64{1, 102}, SchemeGlobal},
		{"unknown id", []int64{999}, SchemeGlobal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectScheme(tasks, tt.taskIDs); got != tt.want {
				t.Errorf("DetectScheme(%v) = %v, want %v", tt.taskIDs, got, tt.want)
			}
		})
	}
}

func TestDetectScheme_NoTasks(t *testing.T) {
	if got := DetectScheme(nil, []int64{1}); got != SchemeGlobal {
		t.Errorf("DetectScheme with no tasks = %v, want %v", got, SchemeGlobal)
	}
}

func TestToGlobalIDs(t *testing.T) {
	tasks := addressFixture()
	tasks = append(tasks, &task.Task{ProjectID: "p", ProjectSequence: 4, GlobalID: 0})

	tests := []struct {
		name      string
		sequences []int64
		want      []int64
	}{
		{"empty input", nil, []int64{}},
		{"all resolve", []int64{1, 2, 3}, []int64{101, 102, 103}},
		{"input order preserved", []int64{3, 1}, []int64{103, 101}},
		{"unknown dropped", []int64{1, 999, 2}, []int64{101, 102}},
		{"zero global dropped", []int64{4, 1}, []int64{101}},
		{"nothing resolves", []int64{998, 999}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToGlobalIDs(tasks, tt.sequences)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToGlobalIDs(%v) = %v, want %v", tt.sequences, got, tt.want)
			}
		})
	}
}
