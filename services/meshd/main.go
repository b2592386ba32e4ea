// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/AleutianMesh/services/gate"
	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/mesh"
	"github.com/AleutianAI/AleutianMesh/services/meshd/config"
	"github.com/AleutianAI/AleutianMesh/services/meshd/identity"
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/AleutianAI/AleutianMesh/services/meshd/routes"
	"github.com/AleutianAI/AleutianMesh/services/scanner"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: could not load configuration: %v", err)
	}

	store, err := ledger.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("FATAL: could not open ledger store: %v", err)
	}
	defer store.Close()

	engine := ledger.NewAccrualEngine(store)
	sink := ledger.NewScanSink(store, engine)
	sc, err := scanner.New(sink)
	if err != nil {
		log.Fatalf("FATAL: could not load the threat catalog: %v", err)
	}

	hub := mesh.NewHub()
	g := gate.New(sc, store, hub)

	issuer, err := identity.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("FATAL: could not create the token issuer: %v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accrualCfg := ledger.DefaultAccrualConfig()
	accrualCfg.Interval = cfg.AccrualInterval
	scheduler := ledger.NewAccrualScheduler(engine, hub, accrualCfg)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("FATAL: could not start the accrual scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, routes.Deps{
		Store:     store,
		Engine:    engine,
		Scanner:   sc,
		Gate:      g,
		Hub:       hub,
		Issuer:    issuer,
		Metrics:   metrics,
		Registry:  registry,
		StartedAt: time.Now(),
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("meshd listening", "port", cfg.Port, "db_path", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server exited", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
