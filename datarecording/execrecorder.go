package datarecording

import (
	"os"
	"strings"
	"time"
)

// execInfo is one property of the program execution.
type execInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program was run.
type execRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []execInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tableName, execInfo{})

	return e
}

// Start records the start time, the command line and the working directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		execInfo{"Start Time", now()},
		execInfo{"Command", strings.Join(os.Args, " ")},
	)

	wd, err := os.Getwd()
	if err == nil {
		e.entries = append(e.entries, execInfo{"Working Directory", wd})
	}
}

// End writes the buffered properties along with the end time.
func (e *execRecorder) End() {
	e.entries = append(e.entries, execInfo{"End Time", now()})

	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	e.entries = nil
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
