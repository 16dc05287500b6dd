// Command score executes one scoring run headless and prints the resulting
// candidate sites. Configuration comes from the environment like the
// service; flags override the run parameters.
//
// Usage:
//
//	go run ./cmd/score -region southern_utah -sites 10 -percentile 90
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ejayaguirre/geopulse/internal/adapter/imagery"
	"github.com/ejayaguirre/geopulse/internal/config"
	"github.com/ejayaguirre/geopulse/internal/domain"
	"github.com/ejayaguirre/geopulse/internal/observability"
	"github.com/ejayaguirre/geopulse/internal/pipeline"
	"github.com/ejayaguirre/geopulse/internal/source"
	"github.com/ejayaguirre/geopulse/internal/store"
)

func main() {
	region := flag.String("region", "", "study region name from the catalog")
	start := flag.String("start", "", "window start date (ISO)")
	end := flag.String("end", "", "window end date (ISO)")
	cloud := flag.Int("cloud", -1, "cloud cover ceiling percent")
	numSites := flag.Int("sites", 0, "number of candidate sites")
	percentile := flag.Int("percentile", -1, "extraction percentile")
	force := flag.Bool("force", true, "recompute even when outputs exist")
	flag.Parse()

	if code := run(*region, *start, *end, *cloud, *numSites, *percentile, *force); code != 0 {
		os.Exit(code)
	}
}

func run(region, start, end string, cloud, numSites, percentile int, force bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()

	overrides := domain.ParameterOverrides{}
	if region != "" {
		overrides.Region = &region
	}
	if start != "" {
		overrides.StartDate = &start
	}
	if end != "" {
		overrides.EndDate = &end
	}
	if cloud >= 0 {
		overrides.CloudCover = &cloud
	}
	if numSites > 0 {
		overrides.NumSites = &numSites
	}
	if percentile >= 0 {
		overrides.Percentile = &percentile
	}

	params, err := overrides.Apply(cfg.Defaults)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	outputs, err := store.New(cfg.OutputDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open output store: %v\n", err)
		return 1
	}

	client := imagery.NewClient(cfg.GatewayBaseURL, cfg.GatewayToken, cfg.GatewayTimeout, logger)
	catalog := imagery.NewCachedCatalog(client, cfg.GatewayCacheSize)

	orch := pipeline.New(pipeline.Options{
		Thermal:       source.NewThermalSource(catalog, logger),
		GridProximity: source.NewGridProximitySource(catalog, logger),
		Equity:        source.NewEquitySource(cfg.SVIPath, logger, metrics.EquityFallbacks),
		Outputs:       outputs,
		Logger:        logger,
		Metrics:       metrics,
		GridCellDeg:   cfg.GridCellDeg,
		Seed:          cfg.ExtractionSeed,
		RunTimeout:    cfg.RunTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	if err := orch.RunSync(ctx, params, force); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: scoring run: %v\n", err)
		return 1
	}

	sites, err := outputs.LoadSites()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load sites: %v\n", err)
		return 1
	}

	fmt.Printf("Scored %d candidate sites for %s (%s to %s):\n\n",
		len(sites), params.Region.Name, params.StartDate, params.EndDate)
	for _, s := range sites {
		fmt.Printf("  %2d. %-10s GPS %5.1f  %-9s (%.4f, %.4f)  %s\n",
			s.Rank, s.Name, s.GPS, s.Tier, s.Lat, s.Lon, s.CountyEstimate)
	}
	fmt.Printf("\nOutputs written to %s\n", cfg.OutputDir)
	return 0
}
