// Package noop provides observability adapters that discard everything.
package noop

import "mavencrawler/shared/application/ports"

type Logger struct{}

func (Logger) Info(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}

func (l Logger) WithFields(map[string]interface{}) ports.Logger { return l }

type Metrics struct{}

func (Metrics) IncrementCounter(string, map[string]string)          {}
func (Metrics) RecordHistogram(string, float64, map[string]string) {}
func (Metrics) RecordGauge(string, float64, map[string]string)     {}

func (m Metrics) WithTags(map[string]string) ports.Metrics { return m }
