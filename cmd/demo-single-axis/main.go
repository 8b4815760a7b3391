// Command demo-single-axis drives one simulated Z axis through a single
// absolute move, printing its position until the trajectory completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"ethercat-csp-core/core"
	"ethercat-csp-core/internal/simmaster"
)

func main() {
	targetMM := flag.Float64("target-mm", 50.0, "absolute target position in millimeters")
	flag.Parse()

	fmt.Printf("Starting single-axis demo, target %.2fmm...\n", *targetMM)

	master := simmaster.New(1, 200_000)
	h := core.NewHandle(master, "sim0", 1, core.DefaultLoopConfig(1))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.Start(ctx); err != nil {
		fmt.Printf("failed to start control loop: %v\n", err)
		os.Exit(1)
	}

	if err := h.Enqueue(core.MoveToMm(0, *targetMM)); err != nil {
		fmt.Printf("failed to enqueue move: %v\n", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\ninterrupted, stopping...")
			_ = h.Stop()
			return
		case <-ticker.C:
			snap, err := h.Snapshot(0)
			if err != nil {
				fmt.Printf("snapshot error: %v\n", err)
				continue
			}
			fmt.Printf("position=%.3fmm moving=%v statusword=0x%04X\n", snap.PositionMM(core.AxisZ), snap.IsMoving(), snap.Statusword)
			if !snap.IsMoving() {
				fmt.Println("move complete, shutting down")
				_ = h.Stop()
				return
			}
		}
	}
}
