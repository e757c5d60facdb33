package models

import (
	"fmt"
	"strings"
)

// Task selects which restoration model runs and which post-processing applies
// to its output.
type Task string

const (
	// TaskBinarize produces a two-level (black/white) document image.
	TaskBinarize Task = "binarize"

	// TaskDeblur removes blur and keeps the continuous-valued output.
	TaskDeblur Task = "deblur"

	// TaskUnwatermark removes watermarks and keeps the continuous-valued output.
	TaskUnwatermark Task = "unwatermark"
)

// Tasks returns every supported task in a stable order.
func Tasks() []Task {
	return []Task{TaskBinarize, TaskDeblur, TaskUnwatermark}
}

// ParseTask converts a command-line task name into a Task.
func ParseTask(name string) (Task, error) {
	for _, t := range Tasks() {
		if string(t) == name {
			return t, nil
		}
	}
	names := make([]string, 0, len(Tasks()))
	for _, t := range Tasks() {
		names = append(names, string(t))
	}
	return "", &ConfigurationError{
		Reason: fmt.Sprintf("wrong task %q, expected one of (%s)", name, strings.Join(names, ", ")),
	}
}

func (t Task) String() string { return string(t) }
