// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"time"

	"github.com/AleutianAI/AleutianMesh/services/gate"
	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/mesh"
	"github.com/AleutianAI/AleutianMesh/services/meshd/handlers"
	"github.com/AleutianAI/AleutianMesh/services/meshd/identity"
	"github.com/AleutianAI/AleutianMesh/services/meshd/middleware"
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/AleutianAI/AleutianMesh/services/scanner"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries the wired collaborators into route registration.
type Deps struct {
	Store     *ledger.Store
	Engine    *ledger.AccrualEngine
	Scanner   *scanner.Scanner
	Gate      *gate.Gate
	Hub       *mesh.Hub
	Issuer    *identity.Issuer
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
	StartedAt time.Time
}

// SetupRoutes registers every meshd endpoint on the router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/healthz", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	// Live-session entry point. Authentication happens inside the
	// handshake, not in middleware, so failed clients get an envelope
	// instead of a bare 401.
	router.GET("/api/mesh/ws", handlers.MeshSocket(deps.Issuer, deps.Hub, deps.Gate, deps.Scanner, deps.Store, deps.Metrics))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(deps.Store, deps.Issuer))
			auth.POST("/login", handlers.Login(deps.Store, deps.Issuer))
		}

		// Aggregate dashboard and the static catalog are public.
		api.GET("/system/status", handlers.SystemStatus(deps.Store, deps.Engine, deps.Hub, deps.StartedAt))
		api.GET("/system/threats-catalog", handlers.ThreatCatalog(deps.Scanner))

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(deps.Issuer))
		{
			authed.POST("/nodes/register", handlers.RegisterNode(deps.Store))
			authed.GET("/nodes", handlers.ListNodes(deps.Store))

			authed.POST("/messages/send", handlers.SendMessage(deps.Gate, deps.Metrics))
			authed.GET("/messages", handlers.ListMessages(deps.Store))

			authed.POST("/threats/scan", handlers.ScanText(deps.Scanner, deps.Store, deps.Metrics))
			authed.GET("/threats", handlers.ListThreats(deps.Store))

			authed.GET("/pool", handlers.GetPool(deps.Engine, deps.Store))
			authed.POST("/pool/distribute", handlers.Distribute(deps.Engine, deps.Store, deps.Metrics))

			employees := authed.Group("/employees")
			{
				employees.POST("", handlers.CreateEmployee(deps.Store))
				employees.GET("", handlers.ListEmployees(deps.Store))
				employees.POST("/:id/clock-in", handlers.ClockIn(deps.Store))
				employees.POST("/:id/clock-out", handlers.ClockOut(deps.Store, deps.Engine, deps.Metrics))
			}

			authed.POST("/family", handlers.AddFamilyMember(deps.Store))
			authed.GET("/family", handlers.ListFamilyMembers(deps.Store))

			authed.POST("/vaults", handlers.CreateVault(deps.Store))
			authed.GET("/vaults", handlers.ListVaults(deps.Store))

			authed.GET("/audit", handlers.ListAudit(deps.Store))
		}
	}
}
