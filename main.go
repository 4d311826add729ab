package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"briefcast/config"
	"briefcast/pipeline"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	input := flag.String("input", "", "Path to the news items JSON file (overrides config)")
	daemon := flag.Bool("daemon", false, "Keep running and generate digests on a cron schedule")
	cronSpec := flag.String("cron", "", "Cron schedule for daemon mode (overrides config)")
	force := flag.Bool("force", false, "Ignore the interval gate and generate now")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *input != "" {
		cfg.InputPath = *input
	}
	if *force {
		cfg.IntervalHours = 0
	}
	if cfg.InputPath == "" {
		log.Fatal("no input file: set -input or BRIEFCAST_INPUT")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	defer p.Close()

	if !*daemon {
		if err := p.Run(ctx); err != nil {
			log.Fatalf("digest failed: %v", err)
		}
		return
	}

	spec := *cronSpec
	if spec == "" {
		spec = cfg.CronSpec
	}
	if spec == "" {
		spec = "0 * * * *" // hourly; the interval gate decides whether to proceed
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := p.Run(ctx); err != nil {
			log.Printf("digest failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("cron schedule %q: %v", spec, err)
	}
	c.Start()
	log.Printf("briefcast daemon started, schedule %q", spec)

	<-ctx.Done()
	log.Printf("shutting down")
	<-c.Stop().Done()
}
