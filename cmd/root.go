// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cachefx/cachefx/internal/cachefx/attacker"
	"github.com/cachefx/cachefx/internal/cachefx/config"
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
	"github.com/cachefx/cachefx/internal/cachefx/profiler"
	"github.com/cachefx/cachefx/internal/cachefx/rng"
	"github.com/cachefx/cachefx/internal/cachefx/stats"
	"github.com/cachefx/cachefx/internal/cachefx/victim"
)

var (
	cfgFilePath   string
	outputFile    string
	measureFlag   string
	victimFlag    string
	attackerFlag  string
	repeats       int
	giveup        int
	efficacyFlag  string
	sweepStart    float64
	sweepEnd      float64
	sweepStep     float64
	probeFlag     string
	accessFlag    string
	noiseFlag     string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "cachefx",
	Short: "Evaluate CPU cache side-channel resistance via simulated attacks",
	RunE:  runCacheFX,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFilePath, "config", "config.yaml", "path to the cache hierarchy configuration document")
	flags.StringVar(&outputFile, "output", "output.csv", "path to the CSV results file (append mode)")
	flags.StringVar(&measureFlag, "measure", string(MeasureAttacker), "entropy, profiling, attacker, or efficiency")
	flags.StringVar(&victimFlag, "victim", string(VictimSingle), "AES, SquareMult, single, or binary")
	flags.StringVar(&attackerFlag, "attacker", string(AttackerOccupancy), "occupancy or eviction")
	flags.IntVar(&repeats, "repeats", 1, "outer repeat count")
	flags.IntVar(&giveup, "giveup", 10000, "per-attack give-up iteration bound")
	flags.StringVar(&efficacyFlag, "efficacy-mode", string(EfficacyProbability), "probability, size, noise, or heatmap")
	flags.Float64Var(&sweepStart, "start", 0, "sweep range start")
	flags.Float64Var(&sweepEnd, "end", 0, "sweep range end")
	flags.Float64Var(&sweepStep, "step", 1, "sweep range step")
	flags.StringVar(&probeFlag, "probe", string(ProbeFlagAllow), "allow, last, or disallow")
	flags.StringVar(&accessFlag, "access", string(AccessFlagAll), "all, target, five, ten, or fifteen")
	flags.StringVar(&noiseFlag, "noise", string(NoiseFlagSeparate), "separate, same, or probe")
	flags.StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")
}

func runCacheFX(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logrus.SetLevel(level)

	measure, err := parseMeasurement(measureFlag)
	if err != nil {
		return err
	}
	victimType, err := parseVictim(victimFlag)
	if err != nil {
		return err
	}
	attackerKind, err := parseAttackerKind(attackerFlag)
	if err != nil {
		return err
	}
	efficacyMode, err := parseEfficacyMode(efficacyFlag)
	if err != nil {
		return err
	}
	probeSel, err := parseProbeFlag(probeFlag)
	if err != nil {
		return err
	}
	accessSel, err := parseAccessFlag(accessFlag)
	if err != nil {
		return err
	}
	noiseSel, err := parseNoiseFlag(noiseFlag)
	if err != nil {
		return err
	}

	doc, err := config.Load(cfgFilePath)
	if err != nil {
		// §7 item 2: a missing configuration file is fatal.
		return err
	}

	writer := stats.NewCSVWriter(outputFile, resultHeader(measure))

	for run := 0; run < max1(repeats); run++ {
		seed := doc.Run.Seed + int64(run)
		if err := runOnce(doc, seed, measure, victimType, attackerKind, efficacyMode, probeSel, accessSel, noiseSel, writer); err != nil {
			logrus.WithError(err).Error("run failed")
		}
	}
	return nil
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func resultHeader(measure MeasurementType) []string {
	switch measure {
	case MeasureProfiling:
		return []string{"evictionSetSize", "truePositives", "falsePositives", "missesUnderRun", "missesUnderEvict", "missesUnderFlush", "attackMemorySize"}
	case MeasureAttacker:
		return []string{"success", "iterations", "meanA", "meanB", "abDiff", "selfEvictionRate", "correctEvictionRate", "uniqueVictimLines"}
	case MeasureEntropy:
		return []string{"nLines", "nSets", "nWays", "evictionSetSize", "profiledSetSize"}
	case MeasureEfficiency:
		return []string{"efficacyMode", "x", "evictionSetSize", "mean", "variance"}
	default:
		return []string{"min", "max", "mean", "variance", "median"}
	}
}

func runOnce(doc *config.Document, seed int64, measure MeasurementType, victimType VictimType, attackerKind AttackerKind, efficacyMode EfficacyMode, probeSel ProbeFlag, accessSel AccessFlag, noiseSel NoiseFlag, writer *stats.CSVWriter) error {
	gen := rng.New(seed)

	c, err := config.BuildCache(doc.Cache, gen)
	if err != nil {
		return err
	}
	m := mmu.New(c, 0)

	v, err := buildVictim(victimType, m, doc.Victim.CacheSize, doc.Victim.Randomize, gen)
	if err != nil {
		return err
	}
	setAccessType(v, accessSel)

	evictionProfiler := profiler.NewP90Profiler(0.9)
	handle := victimHandle(v)
	evSet := evictionProfiler.CreateEvictionSet(v, handle, c.Geometry().EvictionSetSize, 10000)

	switch measure {
	case MeasureProfiling:
		stat := evictionProfiler.EvaluateEvictionSet(v, handle, evSet, 500)
		return writer.Append([][]string{{
			fmt.Sprint(stat.EvictionSetSize), fmt.Sprint(stat.TruePositives), fmt.Sprint(stat.FalsePositives),
			fmt.Sprint(stat.MissesUnderRun), fmt.Sprint(stat.MissesUnderEvict), fmt.Sprint(stat.MissesUnderFlush),
			fmt.Sprint(stat.AttackMemorySize),
		}})

	case MeasureAttacker:
		cfg := attacker.DefaultConfig()
		cfg.ProbeMode = probeMode(probeSel)
		cfg.NoiseMode = noiseMode(noiseSel)
		cfg.GiveUp = giveup

		var d *attacker.Driver
		attackerRNG := gen.Stream(rng.StreamNoise)
		if attackerKind == AttackerOccupancy {
			d = attacker.NewOccupancyAttacker(cfg, handle, v, evSet, attackerRNG)
		} else {
			d = attacker.NewEvictionAttacker(cfg, handle, v, evSet, attackerRNG)
		}
		res := d.Run()
		return writer.Append([][]string{{
			fmt.Sprint(res.Success), fmt.Sprint(res.Iterations), fmt.Sprint(res.MeanA), fmt.Sprint(res.MeanB),
			fmt.Sprint(res.ABDiff), fmt.Sprint(res.SelfEvictionRate), fmt.Sprint(res.CorrectEvictionRate),
			fmt.Sprint(res.UniqueVictimLines),
		}})

	case MeasureEfficiency:
		return runEfficiencySweep(efficacyMode, v, handle, evictionProfiler, writer)

	case MeasureEntropy:
		return writer.Append([][]string{{fmt.Sprint(c.Geometry().NLines), fmt.Sprint(c.Geometry().NSets), fmt.Sprint(c.Geometry().NWays), fmt.Sprint(c.Geometry().EvictionSetSize), fmt.Sprint(len(evSet))}})
	}
	return nil
}

// runEfficiencySweep walks a parameter range recomputing the eviction
// set's evaluated effectiveness at each point, matching the shape of
// AttackEfficiencyController::runAnalysis without its per-mode file-suffix
// quirks (§9: reproduce the intent, not the original's ambiguous switch).
func runEfficiencySweep(mode EfficacyMode, v victim.Victim, h *mmu.Handle, p *profiler.P90Profiler, writer *stats.CSVWriter) error {
	start, end, step := sweepStart, sweepEnd, sweepStep
	if step <= 0 {
		step = 1
	}
	if end <= start {
		end = start + step
	}

	var rows [][]string
	for x := start; x <= end; x += step {
		evSet := p.CreateEvictionSet(v, h, int(x), 10000)
		result := p.EvaluateEvictionSet(v, h, evSet, 500)
		summary := stats.Reduce([]float64{float64(result.MissesUnderRun), float64(result.MissesUnderEvict), float64(result.MissesUnderFlush)})
		rows = append(rows, []string{
			string(mode), fmt.Sprintf("%.4f", x), fmt.Sprint(len(evSet)),
			fmt.Sprintf("%.4f", summary.Mean), fmt.Sprintf("%.4f", summary.Variance),
		})
	}
	return writer.Append(rows)
}

func buildVictim(t VictimType, m *mmu.MMU, cacheSize uint64, randomize bool, gen *rng.Generator) (victim.Victim, error) {
	switch t {
	case VictimSingle:
		return victim.NewSingleAccessVictim(m, cacheSize, randomize, gen.Stream(rng.StreamPlaintext)), nil
	case VictimBinary:
		return victim.NewBinaryVictim(m, cacheSize), nil
	default:
		return nil, fmt.Errorf("victim type %q is an external collaborator (§1) not implemented by the core", t)
	}
}

// victimHandle extracts the handle the profiler and driver read/prime
// through. Every victim shipped by the core embeds victim.Base, which
// satisfies HandleProvider.
func victimHandle(v victim.Victim) *mmu.Handle {
	if hp, ok := v.(victim.HandleProvider); ok {
		return hp.PrimaryHandle()
	}
	return nil
}

func setAccessType(v victim.Victim, sel AccessFlag) {
	h := victimHandle(v)
	if h == nil {
		return
	}
	switch sel {
	case AccessFlagTarget:
		h.SetAccessType(mmu.AccessTarget)
	case AccessFlagFive:
		h.SetAccessType(mmu.AccessFive)
	case AccessFlagTen:
		h.SetAccessType(mmu.AccessTen)
	case AccessFlagFifteen:
		h.SetAccessType(mmu.AccessFifteen)
	default:
		h.SetAccessType(mmu.AccessAll)
	}
}

func probeMode(sel ProbeFlag) attacker.ProbeMode {
	switch sel {
	case ProbeFlagLast:
		return attacker.ProbeLast
	case ProbeFlagDisallow:
		return attacker.ProbeVictim
	default:
		return attacker.ProbeAttacker
	}
}

func noiseMode(sel NoiseFlag) attacker.NoiseMode {
	switch sel {
	case NoiseFlagSame:
		return attacker.NoiseSame
	case NoiseFlagProbe:
		return attacker.NoiseProbeSize
	default:
		return attacker.NoiseSeparate
	}
}
