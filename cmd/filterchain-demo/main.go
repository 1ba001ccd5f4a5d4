package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaban/filterchain"
	"github.com/shaban/filterchain/config"
	"github.com/shaban/filterchain/graph"
)

func main() {
	fmt.Println("filterchain Engine - Architecture Demonstration")
	fmt.Println("================================================")

	cfg := filterchain.EngineConfig{
		Preferences: config.Preferences{
			LatencyHint:      config.LatencyLow,
			ChannelsCapture:  1,
			ChannelsPlayback: 1,
		},
		ErrorHandler: &filterchain.DefaultErrorHandler{},
	}

	engine, err := filterchain.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	fmt.Println("\nCompiling a one-band lowpass chain...")
	desc := &graph.Description{
		Nodes: []graph.NodeSpec{{
			Type:  "builtin",
			Name:  "lp",
			Label: "lowpass",
			Control: map[string]float64{
				"Freq": 800,
			},
		}},
	}
	if err := engine.Compile(desc); err != nil {
		log.Fatalf("Failed to compile graph: %v", err)
	}
	for _, w := range engine.Warnings() {
		fmt.Printf("compile warning: %s\n", w)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	fmt.Println("\nProcessing a test block...")
	capture := [][]float32{{1, 0.5, -0.5, -1}}
	playback := [][]float32{make([]float32, 4)}
	if err := engine.Process(capture, playback); err != nil {
		log.Fatalf("Process failed: %v", err)
	}
	fmt.Printf("playback[0] = %v\n", playback[0])

	fmt.Println("\nDiscovered parameters:")
	for _, p := range engine.Bridge().Params() {
		fmt.Printf("- %s (min=%.1f max=%.1f)\n", p.Name, p.Min, p.Max)
	}

	fmt.Println("\nSerializing engine state...")
	serializer := filterchain.NewSerializer(engine)
	jsonState, err := serializer.SaveToJSON(desc)
	if err != nil {
		log.Printf("Failed to serialize state: %v", err)
	} else {
		fmt.Printf("Engine state serialized (%d bytes)\n", len(jsonState))
	}

	fmt.Println("\nEngine Status:")
	fmt.Printf("- Name: %s\n", engine.Name())
	fmt.Printf("- Running: %v\n", engine.IsRunning())
	fmt.Printf("- Sample rate: %.0f Hz, block size: %d\n", engine.Settings().SampleRate, engine.Settings().BlockSize)

	fmt.Println("\nEngine running. Press Ctrl+C to stop...")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for i := 0; i < 5; i++ {
			time.Sleep(1 * time.Second)
			if !engine.IsRunning() {
				return
			}
			fmt.Printf("Engine heartbeat %d/5...\n", i+1)
		}
	}()

	<-sigChan
	fmt.Println("\nShutdown signal received.")
}
