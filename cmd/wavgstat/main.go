package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sys/cpu"

	"cryowavg/pkg/config"
	"cryowavg/pkg/projector"
	"cryowavg/pkg/report"
	"cryowavg/pkg/synthetic"
	"cryowavg/pkg/visualization"
	"cryowavg/pkg/wavg"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "wavgstat.yaml", "YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	variant := flag.String("variant", "", "Override kernel variant (ref2d, ref3d, data3d)")
	precision := flag.String("precision", "", "Override precision (float32, float64)")
	workers := flag.Int("workers", 0, "Override number of concurrent orientation groups")
	partitions := flag.Int("partitions", 0, "Override number of sub-batches merged after accumulation")
	significance := flag.Float64("significance", 0, "Override significance weight (0 keeps config or batch value)")
	weightNorm := flag.Float64("weight-norm", 0, "Override weight normalisation (0 keeps config or batch value)")
	reportFile := flag.String("report", "", "Override report output file")
	imageDir := flag.String("images", "", "Override directory for accumulator maps")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, overrides{
		variant:      *variant,
		precision:    *precision,
		workers:      *workers,
		partitions:   *partitions,
		significance: *significance,
		weightNorm:   *weightNorm,
		reportFile:   *reportFile,
		imageDir:     *imageDir,
		verbose:      *verbose,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	slog.Debug("cpu features",
		"goarch", runtime.GOARCH,
		"avx2", cpu.X86.HasAVX2,
		"avx512f", cpu.X86.HasAVX512F,
		"sve", cpu.ARM64.HasSVE,
		"blockSize", wavg.DefaultBlockSize())

	fmt.Println("================================")
	fmt.Println("WEIGHTED-AVERAGE RESIDUAL STATISTICS")
	fmt.Println("================================")

	opts, err := syntheticOptions(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Generating synthetic batch...")
	dataset, err := synthetic.Generate(opts)
	if err != nil {
		log.Fatalf("Failed to generate batch: %v", err)
	}

	params := kernelParams(cfg, dataset)
	kernelLogger := logger.With("precision", cfg.Kernel.Precision)

	var rep *report.Report
	var maps [3][]float64
	switch cfg.Kernel.Precision {
	case "float32":
		rep, maps, err = run[float32](dataset, params, cfg.Kernel.Partitions, kernelLogger)
	default:
		rep, maps, err = run[float64](dataset, params, cfg.Kernel.Partitions, kernelLogger)
	}
	if err != nil {
		log.Fatalf("Accumulation failed: %v", err)
	}
	rep.Precision = cfg.Kernel.Precision

	fmt.Println()
	rep.Print(os.Stdout)

	if cfg.Output.ReportFile != "" {
		if err := rep.Save(cfg.Output.ReportFile); err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}
		fmt.Printf("\nReport saved to: %s\n", cfg.Output.ReportFile)
	}

	if cfg.Output.ImageDir != "" {
		fmt.Println("\nSaving accumulator maps...")
		for i, name := range []string{"diff2", "crossXA", "autoAA"} {
			viewer, err := visualization.NewViewer(maps[i], dataset.Layout)
			if err != nil {
				log.Printf("Warning: Failed to render %s: %v", name, err)
				continue
			}
			dir := filepath.Join(cfg.Output.ImageDir, name)
			if err := viewer.SaveSliceSequence(name, dir); err != nil {
				log.Printf("Warning: Failed to save %s maps: %v", name, err)
			}
		}
		fmt.Printf("Maps saved to: %s\n", cfg.Output.ImageDir)
	}
}

// run executes the kernel on the dataset at precision T. The orientation
// groups are processed in the given number of sub-batches, each into its own
// accumulators, which are then merged.
func run[T wavg.Float](d *synthetic.Dataset, params wavg.Params, partitions int, logger *slog.Logger) (*report.Report, [3][]float64, error) {
	var maps [3][]float64

	kernel, err := wavg.NewKernel[T](params, d.Layout, d.Projector, d.Shifter)
	if err != nil {
		return nil, maps, err
	}
	kernel.SetLogger(logger)
	batch := synthetic.ToBatch[T](d)
	out := wavg.NewAccumulators[T](d.Layout.Size())

	groups := batch.Groups()
	partitions = max(1, min(partitions, groups))

	effective := kernel.Params()
	fmt.Printf("Accumulating %d orientation groups x %d translations over %d pixels (%d lanes, %d workers, %d partitions)...\n",
		groups, batch.Translations(), effective.ImageSize, effective.BlockSize, effective.Workers, partitions)

	start := time.Now()
	if partitions == 1 {
		if err := kernel.Run(batch, out); err != nil {
			return nil, maps, err
		}
	} else {
		part := wavg.NewAccumulators[T](d.Layout.Size())
		for i := 0; i < partitions; i++ {
			first, last := i*groups/partitions, (i+1)*groups/partitions
			part.Reset()
			if err := kernel.Run(batch.Slice(first, last), part); err != nil {
				return nil, maps, fmt.Errorf("partition %d: %w", i, err)
			}
			if err := out.Merge(part); err != nil {
				return nil, maps, err
			}
			logger.Debug("partition merged", "partition", i, "first", first, "last", last)
		}
	}

	rep := &report.Report{
		Variant:            params.Variant.String(),
		Groups:             groups,
		Translations:       batch.Translations(),
		SignificanceWeight: params.SignificanceWeight,
		WeightNorm:         params.WeightNorm,
		Significant:        report.CountSignificant(batch.Weights, T(params.SignificanceWeight)),
		Elapsed:            time.Since(start),
	}
	report.Fill(rep, out)

	maps[0] = report.Float64s(out.Diff2)
	maps[1] = report.Float64s(out.CrossXA)
	maps[2] = report.Float64s(out.AutoAA)
	return rep, maps, nil
}

// kernelParams combines the parameters implied by the dataset with the
// kernel section of the configuration. Zero weights in the configuration
// keep the dataset's values; zero scheduling fields select the kernel's
// defaults.
func kernelParams(cfg *config.Config, d *synthetic.Dataset) wavg.Params {
	params := d.KernelParams()
	if cfg.Kernel.SignificanceWeight > 0 {
		params.SignificanceWeight = cfg.Kernel.SignificanceWeight
	}
	if cfg.Kernel.WeightNorm > 0 {
		params.WeightNorm = cfg.Kernel.WeightNorm
	}
	params.BlockSize = cfg.Kernel.BlockSize
	params.Workers = cfg.Kernel.Workers
	params.LaneWorkers = cfg.Kernel.LaneWorkers
	params.RotationTolerance = cfg.Kernel.RotationTolerance
	return params
}

// overrides are the command line values that replace configuration entries
// when set.
type overrides struct {
	variant, precision   string
	workers, partitions  int
	significance         float64
	weightNorm           float64
	reportFile, imageDir string
	verbose              bool
}

func applyOverrides(cfg *config.Config, o overrides) {
	if o.variant != "" {
		cfg.Kernel.Variant = o.variant
	}
	if o.precision != "" {
		cfg.Kernel.Precision = o.precision
	}
	if o.workers > 0 {
		cfg.Kernel.Workers = o.workers
	}
	if o.partitions > 0 {
		cfg.Kernel.Partitions = o.partitions
	}
	if o.significance > 0 {
		cfg.Kernel.SignificanceWeight = o.significance
	}
	if o.weightNorm > 0 {
		cfg.Kernel.WeightNorm = o.weightNorm
	}
	if o.reportFile != "" {
		cfg.Output.ReportFile = o.reportFile
	}
	if o.imageDir != "" {
		cfg.Output.ImageDir = o.imageDir
	}
	if o.verbose {
		cfg.Output.Verbose = true
	}
}

func syntheticOptions(cfg *config.Config) (synthetic.Options, error) {
	v, err := wavg.ParseVariant(cfg.Kernel.Variant)
	if err != nil {
		return synthetic.Options{}, err
	}
	interp, err := projector.ParseInterpolation(cfg.Projector.Interpolation)
	if err != nil {
		return synthetic.Options{}, err
	}
	return synthetic.Options{
		Variant:             v,
		Interpolation:       interp,
		BoxSize:             cfg.Synthetic.BoxSize,
		MaxRadius:           cfg.Synthetic.MaxRadius,
		Orientations:        cfg.Synthetic.Orientations,
		AngularStep:         cfg.Synthetic.AngularStep,
		OffsetRange:         cfg.Synthetic.OffsetRange,
		OffsetStep:          cfg.Synthetic.OffsetStep,
		Noise:               cfg.Synthetic.Noise,
		SignificantFraction: cfg.Synthetic.SignificantFraction,
		CTF:                 cfg.Kernel.CTF,
		PartScale:           cfg.Kernel.PartScale,
		Seed:                cfg.Synthetic.Seed,
	}, nil
}
