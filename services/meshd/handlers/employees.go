// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/meshd/middleware"
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/gin-gonic/gin"
)

// Payroll arithmetic. Every clocked-out shift withholds TaxRate of
// gross pay and contributes PoolShareRate of gross pay to the shared
// pool through the accrual engine's public interface.
const (
	TaxRate       = 0.35
	PoolShareRate = 0.15
)

// wageFloors maps country codes to their minimum hourly wage. Rates
// below the floor are raised to it at creation time.
var wageFloors = map[string]float64{
	"US": 7.25,
	"CA": 12.50,
	"GB": 11.44,
	"DE": 12.41,
	"AU": 23.23,
}

const defaultWageFloor = 7.25

type createEmployeeRequest struct {
	Name       string  `json:"name" binding:"required"`
	Role       string  `json:"role"`
	Industry   string  `json:"industry"`
	Country    string  `json:"country"`
	HourlyRate float64 `json:"hourly_rate" binding:"required,gt=0"`
}

// CreateEmployee adds an employee owned by the caller, flooring the
// hourly rate at the country minimum wage.
func CreateEmployee(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createEmployeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "name and hourly_rate required"})
			return
		}

		country := req.Country
		if country == "" {
			country = "US"
		}
		floor, known := wageFloors[country]
		if !known {
			floor = defaultWageFloor
		}
		effectiveRate := max(req.HourlyRate, floor)

		role := req.Role
		if role == "" {
			role = "General"
		}
		industry := req.Industry
		if industry == "" {
			industry = "General"
		}

		employeeID, err := store.InsertEmployee(c.Request.Context(), ledger.Employee{
			UserID:     id.UserID,
			Name:       req.Name,
			Role:       role,
			Industry:   industry,
			Country:    country,
			HourlyRate: effectiveRate,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "employee_id": employeeID, "effective_rate": effectiveRate})
	}
}

// ClockIn opens a shift. An already-open shift is a conflict.
func ClockIn(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		employeeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "numeric employee id required"})
			return
		}

		emp, err := store.GetEmployee(c.Request.Context(), employeeID, id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}

		if _, err := store.OpenTimeRecord(c.Request.Context(), emp.ID); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "conflict", "detail": "already clocked in"})
			return
		}

		recordID, err := store.InsertTimeRecord(c.Request.Context(), emp.ID, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		if err := store.SetEmployeeStatus(c.Request.Context(), emp.ID, "working"); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "record_id": recordID})
	}
}

// ClockOut closes the open shift, computes pay, and contributes the
// pool share of gross pay through the accrual engine.
func ClockOut(store *ledger.Store, engine *ledger.AccrualEngine, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		employeeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "numeric employee id required"})
			return
		}

		emp, err := store.GetEmployee(c.Request.Context(), employeeID, id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}

		record, err := store.OpenTimeRecord(c.Request.Context(), emp.ID)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "conflict", "detail": "not clocked in"})
			return
		}

		now := time.Now()
		hours := now.Sub(record.ClockIn).Hours()
		gross := hours * emp.HourlyRate
		tax := gross * TaxRate
		net := gross - tax
		contribution := gross * PoolShareRate

		if err := store.CloseTimeRecord(c.Request.Context(), record.ID, now, hours, gross, tax, net); err != nil {
			respondError(c, err)
			return
		}
		if err := store.SetEmployeeStatus(c.Request.Context(), emp.ID, "active"); err != nil {
			respondError(c, err)
			return
		}
		if contribution > 0 {
			if _, err := engine.Credit(c.Request.Context(), contribution, "payroll_contribution"); err != nil {
				respondError(c, err)
				return
			}
			metrics.PoolCreditsTotal.WithLabelValues("payroll_contribution").Add(contribution)
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"hours_worked": fmt.Sprintf("%.4f", hours),
			"gross_pay":    fmt.Sprintf("%.2f", gross),
			"tax_withheld": fmt.Sprintf("%.2f", tax),
			"net_pay":      fmt.Sprintf("%.2f", net),
		})
	}
}

// ListEmployees returns the caller's employees.
func ListEmployees(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		employees, err := store.ListEmployees(c.Request.Context(), id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"employees": employees})
	}
}
