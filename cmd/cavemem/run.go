package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/cavesys"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/datarecording"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/monitoring"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

var (
	flagFrames      uint64
	flagTrace       string
	flagMonitor     bool
	flagMonitorPort int
	flagParallelID  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot-load and render frames of synthetic traffic.",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	runCmd.Flags().Uint64Var(&flagFrames, "frames", 3,
		"number of frames to render and display")
	runCmd.Flags().StringVar(&flagTrace, "trace", "",
		"record arbiter grants into the given sqlite file")
	runCmd.Flags().BoolVar(&flagMonitor, "monitor", false,
		"serve the monitoring API and open it in a browser")
	runCmd.Flags().IntVar(&flagMonitorPort, "monitor-port", 0,
		"port for the monitoring server, random if 0")
	runCmd.Flags().BoolVar(&flagParallelID, "parallel-id", false,
		"use globally unique IDs instead of sequential ones")
}

func run() {
	if flagParallelID {
		sim.UseParallelIDGenerator()
	}

	engine := sim.NewSerialEngine()
	sys := cavesys.MakeBuilder().
		WithEngine(engine).
		Build("Cave")

	if flagTrace != "" {
		recorder := datarecording.New(flagTrace)
		tracer := datarecording.NewGrantTracer(recorder, "grants")
		tracer.Trace(sys.MainArbiter)
		tracer.Trace(sys.FastArbiter)
	}

	if flagMonitor {
		startMonitor(engine, sys)
	}

	bootLoad(sys)
	startTraffic(sys)

	if err := engine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Simulation failed: %s\n", err)
		atexit.Exit(1)
	}

	reportStats(engine, sys)
	atexit.Exit(0)
}

func startMonitor(engine sim.Engine, sys *cavesys.System) {
	m := monitoring.NewMonitor()
	m.WithPortNumber(flagMonitorPort)
	m.RegisterEngine(engine)

	m.RegisterComponent(sys.MainMemory)
	m.RegisterComponent(sys.FastMemory)
	m.RegisterComponent(sys.MainArbiter)
	m.RegisterComponent(sys.FastArbiter)
	m.RegisterComponent(sys.ProgCache)
	m.RegisterComponent(sys.TileCache)
	m.RegisterComponent(sys.SpriteCache)
	m.RegisterComponent(sys.LoaderCache)
	m.RegisterComponent(sys.SoundCache0)
	m.RegisterComponent(sys.SoundCache1)
	m.RegisterComponent(sys.GfxCache)

	m.StartServer(true)
}

// bootLoad streams a synthetic image through the packing write buffer,
// the way the boot firmware streams the game image.
func bootLoad(sys *cavesys.System) {
	image := make([]uint64, 4096)
	for i := range image {
		image[i] = uint64(i) * 0x9e3779b9
	}

	sys.Loader.AddData(0, image)
	sys.Loader.Enable()
}

func startTraffic(sys *cavesys.System) {
	sys.Writer.RenderFrames(flagFrames)
	sys.Timing.Run(flagFrames + 1)

	readsPerFrame := uint64(2000)
	sys.ProgReader.ReadWords(flagFrames * readsPerFrame)
	sys.TileReader.ReadWords(flagFrames * readsPerFrame)
	sys.SpriteReader.ReadWords(flagFrames * readsPerFrame)
	sys.SoundReader0.ReadWords(flagFrames * readsPerFrame / 2)
	sys.SoundReader1.ReadWords(flagFrames * readsPerFrame / 2)
	sys.GfxReader.ReadWords(flagFrames * readsPerFrame)
}

func reportStats(engine sim.Engine, sys *cavesys.System) {
	fmt.Printf("Simulated time: %.6f s\n", float64(engine.CurrentTime()))
	fmt.Printf("Words loaded:   %d\n", sys.Loader.WordsLoaded())
	fmt.Printf("Frames written: %d\n", sys.Writer.FramesWritten())
	fmt.Printf("Frames shown:   %d\n", sys.Timing.FramesDone())
	fmt.Printf("Pixels drawn:   %d\n", sys.Timing.PixelsDrawn())

	fmt.Println("Main arbiter grants:")
	for _, client := range sys.MainArbiter.ClientNames() {
		fmt.Printf("  %-10s %d\n", client, sys.MainArbiter.GrantCount(client))
	}

	fmt.Println("Fast arbiter grants:")
	for _, client := range sys.FastArbiter.ClientNames() {
		fmt.Printf("  %-10s %d\n", client, sys.FastArbiter.GrantCount(client))
	}
}
