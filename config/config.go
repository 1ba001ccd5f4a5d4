// Package config resolves the host-supplied stream preferences into the
// concrete settings the graph compiler and runtime need, applying the
// same sensible-default pattern used throughout this codebase.
package config

import "github.com/shaban/filterchain/graph"

// LatencyHint maps to a default block size when BlockSize is unset.
type LatencyHint int

const (
	LatencyDefault LatencyHint = iota
	LatencyLow
	LatencyHigh
)

// Preferences are the node-descriptive properties the hosting environment
// supplies (rate, channel count, block size, latency), mirrored here
// before compiling a graph.
type Preferences struct {
	PreferredSampleRate float64
	BlockSize           int
	LatencyHint         LatencyHint
	ChannelsCapture     int
	ChannelsPlayback    int
	MaxInstances        int
}

// Settings are the resolved, ready-to-use values.
type Settings struct {
	SampleRate       float64
	BlockSize        int
	ChannelsCapture  int
	ChannelsPlayback int
	MaxInstances     int
}

// Resolve applies defaults to an incoming Preferences, honoring an
// explicit BlockSize over LatencyHint the same way the audio engine
// honors an explicit buffer size over a latency hint.
func Resolve(p Preferences) Settings {
	rate := p.PreferredSampleRate
	if rate <= 0 {
		rate = 48000
	}

	block := p.BlockSize
	if block <= 0 {
		switch p.LatencyHint {
		case LatencyLow:
			block = 64
		case LatencyHigh:
			block = 1024
		default:
			block = 256
		}
	}
	if block > graph.ScratchBlockFrames {
		block = graph.ScratchBlockFrames
	}

	capture := p.ChannelsCapture
	if capture <= 0 {
		capture = 2
	}
	playback := p.ChannelsPlayback
	if playback <= 0 {
		playback = 2
	}

	maxInstances := p.MaxInstances
	if maxInstances <= 0 || maxInstances > graph.MaxInstances {
		maxInstances = graph.MaxInstances
	}

	return Settings{
		SampleRate:       rate,
		BlockSize:        block,
		ChannelsCapture:  capture,
		ChannelsPlayback: playback,
		MaxInstances:     maxInstances,
	}
}
