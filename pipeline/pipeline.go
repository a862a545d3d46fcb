// Package pipeline orchestrates the full analysis: leadfield projection,
// per-ROI band power, per-network connectivity, and named reductions into a
// flat result set.
//
// Fatal errors are limited to configuration and input-shape problems found
// before computation. Everything after that is isolated per subject: a ROI
// or network that fails numerically is reported as a diagnostic while the
// rest of the run completes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-neuro/dsp/welch"
	"github.com/cwbudde/algo-neuro/measure/bandpower"
	"github.com/cwbudde/algo-neuro/measure/connectivity"
	"github.com/cwbudde/algo-neuro/source"
)

// Run executes one full analysis of a recording against a leadfield
// operator, an atlas, and a set of ROI networks.
//
// Band power is computed for cfg.ROIs by averaging voxel-level spectra in
// power across orientation components and vertices. Connectivity is
// computed per network from rank-one extracted ROI series. Reduction
// outputs land in the result set under their configured names; network
// reductions under "<network>_<name>".
//
// When ctx expires mid-run the partial result set is returned with its
// Incomplete flag set.
func Run(ctx context.Context, rec *source.Recording, op *source.Operator, atlas *source.Atlas, networks []source.Network, cfg Config) (*ResultSet, error) {
	cfg = cfg.normalize(networks)
	if err := cfg.validate(rec.SampleRate(), atlas, networks); err != nil {
		return nil, err
	}

	log := cfg.Logger
	res := newResultSet()

	vs, err := source.Project(rec, op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	log.Debug("recording projected",
		zap.Int("voxels", vs.Voxels()),
		zap.Int("samples", vs.Samples()),
		zap.Int("trials", rec.Trials()))

	wcfg := cfg.welch(rec.SampleRate())

	if !runPower(ctx, vs, atlas, cfg, wcfg, res, log) {
		return abandon(ctx, res), nil
	}

	if !runConnectivity(ctx, vs, atlas, networks, cfg, wcfg, res, log) {
		return abandon(ctx, res), nil
	}

	return res, nil
}

// runPower computes the ROI band-power matrix and stores the configured
// reductions. It reports false when the context expired.
func runPower(ctx context.Context, vs *source.VoxelSeries, atlas *source.Atlas, cfg Config, wcfg welch.Config, res *ResultSet, log *zap.Logger) bool {
	spectra := make([][]float64, len(cfg.ROIs))

	ok := runTasks(ctx, cfg.Workers, len(cfg.ROIs), func(i int) {
		id := cfg.ROIs[i]
		roi, _ := atlas.ROI(id)

		est, err := welch.NewEstimator(wcfg)
		if err != nil {
			res.diagnose(classify(err), fmt.Sprintf("roi %d", id), err.Error())
			return
		}

		series := make([][]float64, 0, len(roi.Vertices)*vs.Orientations())
		for _, vert := range roi.Vertices {
			for axis := 0; axis < vs.Orientations(); axis++ {
				s, err := vs.Axis(vert, axis)
				if err != nil {
					res.diagnose(classify(err), fmt.Sprintf("roi %d", id), err.Error())
					return
				}
				series = append(series, s)
			}
		}

		psd, _, err := est.MeanPSD(series)
		if err != nil {
			log.Warn("roi power estimation failed", zap.Int("roi", id), zap.Error(err))
			res.diagnose(classify(err), fmt.Sprintf("roi %d", id), err.Error())
			return
		}
		spectra[i] = psd
	})
	if !ok {
		return false
	}

	// Drop failed ROIs so the matrix rows stay aligned with real spectra.
	keptIDs := make([]int, 0, len(cfg.ROIs))
	keptSpectra := make([][]float64, 0, len(cfg.ROIs))
	for i, psd := range spectra {
		if psd == nil {
			continue
		}
		keptIDs = append(keptIDs, cfg.ROIs[i])
		keptSpectra = append(keptSpectra, psd)
	}

	est, err := welch.NewEstimator(wcfg)
	if err != nil {
		res.diagnose(classify(err), "power", err.Error())
		return true
	}

	matrix, err := bandpower.Aggregate(keptSpectra, keptIDs, est.Frequencies(), cfg.Bands, cfg.Decibels)
	if err != nil {
		log.Warn("band aggregation failed", zap.Error(err))
		res.diagnose(classify(err), "power", err.Error())
		return true
	}

	for _, name := range matrix.EmptyBands() {
		res.diagnose(DiagEmptyBand, "power", fmt.Sprintf("band %q selects no frequency bins", name))
	}

	for _, name := range sortedNames(cfg.PowerReductions) {
		vals, err := cfg.PowerReductions[name](matrix)
		if err != nil {
			log.Warn("power reduction failed", zap.String("name", name), zap.Error(err))
			res.diagnose(classify(err), "power "+name, err.Error())
			continue
		}
		res.add(name, vals, cfg.WrapMean)
	}

	return true
}

// runConnectivity extracts one series per network-referenced ROI and
// analyzes each network independently. It reports false when the context
// expired.
func runConnectivity(ctx context.Context, vs *source.VoxelSeries, atlas *source.Atlas, networks []source.Network, cfg Config, wcfg welch.Config, res *ResultSet, log *zap.Logger) bool {
	if len(networks) == 0 {
		return true
	}

	need := networkUnion(networks)
	rows := make([][]float64, len(need))

	ok := runTasks(ctx, cfg.Workers, len(need), func(i int) {
		row, err := source.ExtractROI(vs, atlas, need[i], cfg.Filter)
		if err != nil {
			log.Warn("roi extraction failed", zap.Int("roi", need[i]), zap.Error(err))
			res.diagnose(classify(err), fmt.Sprintf("roi %d", need[i]), err.Error())
			return
		}
		rows[i] = row
	})
	if !ok {
		return false
	}

	roiSeries := source.NewROISeries(need, vs.Samples())
	for i, row := range rows {
		if row == nil {
			continue
		}
		if err := roiSeries.SetRow(need[i], row); err != nil {
			res.diagnose(classify(err), fmt.Sprintf("roi %d", need[i]), err.Error())
		}
	}

	engine, err := connectivity.NewEngine(wcfg)
	if err != nil {
		res.diagnose(classify(err), "connectivity", err.Error())
		return true
	}

	return runTasks(ctx, cfg.Workers, len(networks), func(i int) {
		net := networks[i]

		stack, err := engine.Analyze(net, roiSeries, cfg.Bands)
		if err != nil {
			log.Warn("network connectivity failed", zap.String("network", net.Name), zap.Error(err))
			res.diagnose(classify(err), "network "+net.Name, err.Error())
			return
		}

		for _, name := range stack.EmptyBands() {
			res.diagnose(DiagEmptyBand, "network "+net.Name, fmt.Sprintf("band %q selects no frequency bins", name))
		}

		for _, name := range sortedNames(cfg.ConnectivityReductions) {
			vals, err := cfg.ConnectivityReductions[name](stack)
			if err != nil {
				log.Warn("connectivity reduction failed",
					zap.String("network", net.Name), zap.String("name", name), zap.Error(err))
				res.diagnose(classify(err), "network "+net.Name+" "+name, err.Error())
				continue
			}
			res.add(net.Name+"_"+name, vals, cfg.WrapMean)
		}
	})
}

// abandon records the cancellation and returns the partial results.
func abandon(ctx context.Context, res *ResultSet) *ResultSet {
	res.markIncomplete()

	msg := "context cancelled"
	if err := ctx.Err(); err != nil {
		msg = err.Error()
	}
	res.diagnose(DiagIncomplete, "run", msg)
	return res
}

// classify maps a computation error to a diagnostic kind.
func classify(err error) DiagnosticKind {
	if errors.Is(err, connectivity.ErrDegenerate) {
		return DiagDegenerate
	}
	return DiagShape
}

// runTasks runs fn over indices [0, n) with the given parallelism, feeding
// no further tasks once ctx is done. It reports whether every task ran.
func runTasks(ctx context.Context, workers, n int, fn func(i int)) bool {
	if workers == 1 {
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return false
			default:
			}
			fn(i)
		}
		return true
	}

	var stopped atomic.Bool
	idx := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idx {
				fn(i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case idx <- i:
		case <-ctx.Done():
			stopped.Store(true)
			break feed
		}
	}
	close(idx)
	wg.Wait()

	return !stopped.Load()
}
