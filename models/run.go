package models

import "time"

type RunKind string

const (
	RunOptimize RunKind = "optimize"
	RunPredict  RunKind = "predict"
	RunFile     RunKind = "file"
)

// OptimizationRun is one ledger entry per optimize, predict or upload call.
type OptimizationRun struct {
	ID                 string    `gorm:"column:id;primaryKey" json:"id"`
	TS                 time.Time `gorm:"column:ts;index" json:"ts"`
	SessionID          string    `gorm:"column:session_id;index" json:"session_id"`
	Kind               RunKind   `gorm:"column:kind" json:"kind"`
	Topology           Topology  `gorm:"column:topology" json:"topology"`
	Source             Source    `gorm:"column:source" json:"source"`
	RecordCount        int       `gorm:"column:record_count" json:"record_count"`
	EstimatedDelayTime *float64  `gorm:"column:estimated_delay_time" json:"estimated_delay_time"`
	FileName           string    `gorm:"column:file_name" json:"file_name,omitempty"`
}

func (OptimizationRun) TableName() string { return "optimization_runs" }
