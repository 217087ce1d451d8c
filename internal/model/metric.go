package model

import "time"

type MetricEvent struct {
	Time       time.Time         `json:"time"`
	MetricName string            `json:"metric_name"`
	Source     Source            `json:"source"`
	Tags       map[string]string `json:"tags"`
}
