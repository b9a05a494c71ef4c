package app

import "time"

// TickMsg advances the spring animation by one frame.
type TickMsg time.Time

// RateMsg closes one sample-rate measurement window.
type RateMsg time.Time
