package model

import "fmt"

// Job asks for the score metrics of one chart difficulty.
type Job struct {
	ID    string // unique id for tracing
	Song  string // song directory name
	Diff  string // difficulty file name, e.g. "master"
	Level int    // difficulty rating
	Fever bool   // whether fever controls are honored
	Seq   int    // position within its batch, for ordered output
}

// Key identifies the computation a job performs; two jobs with the same key
// produce the same row.
func (j Job) Key() string {
	return fmt.Sprintf("%s/%s/%d/%t", j.Song, j.Diff, j.Level, j.Fever)
}
