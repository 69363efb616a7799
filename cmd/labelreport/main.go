// Command labelreport counts the labels printed on a day, prints the summary
// and writes it to REPORT_FILE. With --test the summary is posted to the Slack
// webhook instead of printed.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"s3labels/config"
	"s3labels/report"
	"s3labels/service"
	"s3labels/webhook"
)

type options struct {
	Test   bool   `long:"test" description:"Generate the report and post it to the webhook"`
	Screen bool   `long:"screen" description:"Generate the report and print it (default)"`
	Bucket string `short:"b" long:"bucket" description:"Bucket holding the labels (default LABEL_BUCKET)"`

	Args struct {
		Date string `positional-arg-name:"date" description:"Day to report, YYYY-MM-DD or YYYY/MM/DD (default today)"`
	} `positional-args:"yes"`
}

type poster interface {
	Post(ctx context.Context, text string) error
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	cfg := config.Load()
	cfg.SetupLogging()
	if opts.Bucket == "" {
		opts.Bucket = cfg.Bucket
	}

	ctx := context.Background()
	backend, err := cfg.NewBackend(ctx)
	if err != nil {
		log.Fatalf("storage init failed: %v", service.HumanError(err))
	}

	hook := webhook.New(cfg.SlackWebhookURL, nil)
	if err := run(ctx, opts, service.New(backend), hook, cfg.ReportFile, os.Stdout, time.Now()); err != nil {
		log.Fatal(service.HumanError(err))
	}
}

func run(ctx context.Context, opts options, svc *service.Service, hook poster, reportFile string, stdout io.Writer, now time.Time) error {
	day := now
	if opts.Args.Date != "" {
		parsed, err := report.ParseDate(opts.Args.Date)
		if err != nil {
			return err
		}
		day = parsed
	}

	r, err := svc.Report(ctx, opts.Bucket, day)
	if err != nil {
		return err
	}
	if reportFile != "" {
		if err := r.WriteFile(reportFile); err != nil {
			return err
		}
	}

	if opts.Test {
		log.Info("Running in test mode... (Slack enabled)")
		// delivery is attempted once; a failure is logged, not fatal
		if err := hook.Post(ctx, r.Text()); err != nil {
			log.Errorf("Failed to send message to Slack: %v", err)
		}
		return nil
	}

	_, err = fmt.Fprintln(stdout, r.Text())
	return err
}
