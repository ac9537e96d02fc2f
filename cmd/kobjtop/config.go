package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes a synthetic workload to drive the kernel objects
// so the viewer has live traffic to show.
type Scenario struct {
	Name        string        `yaml:"name"`
	Duration    time.Duration `yaml:"duration"`
	Queues      []QueueSpec   `yaml:"queues"`
	RingBuffers []RingSpec    `yaml:"ringbuffers"`
	Semaphores  []SemSpec     `yaml:"semaphores"`
	Timers      []TimerSpec   `yaml:"timers"`
}

type QueueSpec struct {
	Name      string        `yaml:"name"`
	Length    int           `yaml:"length"`
	Producers int           `yaml:"producers"`
	Interval  time.Duration `yaml:"interval"`
}

type RingSpec struct {
	Name     string        `yaml:"name"`
	Size     int           `yaml:"size"`
	Split    bool          `yaml:"split"`
	Interval time.Duration `yaml:"interval"`
}

type SemSpec struct {
	Name     string        `yaml:"name"`
	Interval time.Duration `yaml:"interval"`
}

type TimerSpec struct {
	Name   string        `yaml:"name"`
	Period time.Duration `yaml:"period"`
}

// defaultScenario runs when no -scenario file is given.
func defaultScenario() *Scenario {
	return &Scenario{
		Name: "default",
		Queues: []QueueSpec{
			{Name: "jobs", Length: 8, Producers: 2, Interval: 40 * time.Millisecond},
		},
		RingBuffers: []RingSpec{
			{Name: "telemetry", Size: 256, Split: true, Interval: 60 * time.Millisecond},
		},
		Semaphores: []SemSpec{
			{Name: "irq", Interval: 150 * time.Millisecond},
		},
		Timers: []TimerSpec{
			{Name: "heartbeat", Period: 250 * time.Millisecond},
		},
	}
}

// loadScenario reads and validates a scenario file.
func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i, q := range s.Queues {
		if q.Length <= 0 {
			return nil, fmt.Errorf("queue %q: length must be positive", q.Name)
		}
		if q.Producers <= 0 {
			s.Queues[i].Producers = 1
		}
		if q.Interval <= 0 {
			s.Queues[i].Interval = 50 * time.Millisecond
		}
	}
	for i, r := range s.RingBuffers {
		if r.Size < 16 {
			return nil, fmt.Errorf("ring buffer %q: size must be at least 16", r.Name)
		}
		if r.Interval <= 0 {
			s.RingBuffers[i].Interval = 50 * time.Millisecond
		}
	}
	for i, sem := range s.Semaphores {
		if sem.Interval <= 0 {
			s.Semaphores[i].Interval = 100 * time.Millisecond
		}
	}
	for _, t := range s.Timers {
		if t.Period <= 0 {
			return nil, fmt.Errorf("timer %q: period must be positive", t.Name)
		}
	}
	return &s, nil
}
