package main

import (
	"context"

	"github.com/samuel/go-deconz/config"
	"github.com/samuel/go-deconz/deconz"
	"github.com/samuel/go-deconz/driver"
)

func buildAdapter(cfg config.Config) *deconz.Adapter {
	drv := driver.NewSerialDriver(cfg.SerialPort.Path, driver.OpenSerialPort, log)
	metrics := deconz.NewMetrics()
	return deconz.NewAdapter(drv, cfg.SerialPort, cfg.Adapter, cfg.Network,
		deconz.WithLogger(log),
		deconz.WithMetrics(metrics),
	)
}

func startAdapter(ctx context.Context) (*deconz.Adapter, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := buildAdapter(cfg)
	if _, err := a.Start(ctx); err != nil {
		return nil, err
	}
	return a, nil
}
