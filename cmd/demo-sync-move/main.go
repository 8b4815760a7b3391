// Command demo-sync-move drives two simulated axes (X and Z) through
// moves issued in the same cycle, demonstrating the Synchronizer's common
// start time and duration.
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
	xMM := flag.Float64("x-mm", 20.0, "X axis target in millimeters")
	zMM := flag.Float64("z-mm", 80.0, "Z axis target in millimeters")
	flag.Parse()

	fmt.Printf("Starting sync-move demo: X->%.2fmm Z->%.2fmm...\n", *xMM, *zMM)

	master := simmaster.New(2, 200_000)
	h := core.NewHandle(master, "sim0", 2, core.DefaultLoopConfig(2))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.Enqueue(core.SetAxis(0, core.AxisX)); err != nil {
		fmt.Printf("failed to enqueue axis config: %v\n", err)
		os.Exit(1)
	}
	if err := h.Enqueue(core.SetAxis(1, core.AxisZ)); err != nil {
		fmt.Printf("failed to enqueue axis config: %v\n", err)
		os.Exit(1)
	}

	if err := h.Start(ctx); err != nil {
		fmt.Printf("failed to start control loop: %v\n", err)
		os.Exit(1)
	}

	if err := h.Enqueue(core.MoveToMm(0, *xMM)); err != nil {
		fmt.Printf("failed to enqueue move: %v\n", err)
		os.Exit(1)
	}
	if err := h.Enqueue(core.MoveToMm(1, *zMM)); err != nil {
		fmt.Printf("failed to enqueue move: %v\n", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\ninterrupted, stopping...")
			_ = h.Stop()
			return
		case <-ticker.C:
			sx, errX := h.Snapshot(0)
			sz, errZ := h.Snapshot(1)
			if errX != nil || errZ != nil {
				fmt.Printf("snapshot error: x=%v z=%v\n", errX, errZ)
				continue
			}
			fmt.Printf("X=%.3fmm (moving=%v)  Z=%.3fmm (moving=%v)\n",
				sx.PositionMM(core.AxisX), sx.IsMoving(), sz.PositionMM(core.AxisZ), sz.IsMoving())
			if !sx.IsMoving() && !sz.IsMoving() {
				fmt.Println("both axes settled, shutting down")
				_ = h.Stop()
				return
			}
		}
	}
}
