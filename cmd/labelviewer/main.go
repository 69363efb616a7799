// Command labelviewer is the desktop label browser.
package main

import (
	"context"

	"s3labels/config"
	"s3labels/service"
	"s3labels/ui"
)

func main() {
	cfg := config.Load()
	cfg.SetupLogging()

	connect := func(ctx context.Context, profile, region string) (*service.Service, error) {
		backend, err := cfg.WithProfile(profile, region).NewBackend(ctx)
		if err != nil {
			return nil, err
		}
		return service.New(backend), nil
	}

	ui.Run(connect, ui.Defaults{
		Profile: cfg.Profile,
		Region:  cfg.Region,
		Bucket:  cfg.Bucket,
	})
}
