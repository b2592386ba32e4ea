// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is an account row issued by the identity collaborator.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitzero"`
}

// Node is a registered device, owned by the user that registered it.
type Node struct {
	ID           int64     `json:"-"`
	NodeID       string    `json:"node_id"`
	IPAddress    string    `json:"ip_address"`
	DeviceType   string    `json:"device_type"`
	Status       string    `json:"status"`
	OwnerID      int64     `json:"-"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen,omitzero"`
}

// MessageRecord is content that passed the gate. Immutable once
// written, except the delivery acknowledgment flag.
type MessageRecord struct {
	ID        int64     `json:"id"`
	FromNode  string    `json:"from_node"`
	ToNode    string    `json:"to_node,omitempty"`
	Content   string    `json:"content"`
	Encrypted bool      `json:"encrypted"`
	Timestamp time.Time `json:"timestamp"`
	Delivered bool      `json:"delivered"`
}

// ScanRecord is one matched signature from one scan call. Append-only;
// never mutated, never deleted.
type ScanRecord struct {
	ID             int64     `json:"id"`
	ThreatID       string    `json:"threat_id"`
	Type           string    `json:"threat_type"`
	Name           string    `json:"threat_name"`
	SourceID       string    `json:"source_id"`
	Severity       string    `json:"severity"`
	ResponseAction string    `json:"action_taken"`
	MonetaryValue  float64   `json:"monetary_value"`
	DetectedAt     time.Time `json:"detected_at"`
}

// Distribution records one successful debit against the pool.
type Distribution struct {
	ID            int64     `json:"id"`
	RecipientID   int64     `json:"recipient_id"`
	Amount        float64   `json:"amount"`
	Source        string    `json:"source"`
	DistributedAt time.Time `json:"distributed_at"`
}

// Employee and TimeRecord back the thin payroll collaborator.
type Employee struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"-"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Industry   string  `json:"industry"`
	Country    string  `json:"country"`
	HourlyRate float64 `json:"hourly_rate"`
	Status     string  `json:"status"`
}

type TimeRecord struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	ClockIn    time.Time `json:"clock_in"`
}

// FamilyMember and Vault are plain keyed records with no invariants
// beyond ownership.
type FamilyMember struct {
	ID            int64     `json:"id"`
	MemberName    string    `json:"member_name"`
	Relation      string    `json:"relation"`
	OwnerID       int64     `json:"-"`
	CustodyStatus string    `json:"custody_status,omitempty"`
	SupportAmount float64   `json:"support_amount"`
	Notes         string    `json:"notes,omitempty"`
	AddedAt       time.Time `json:"added_at"`
}

type Vault struct {
	ID            int64     `json:"id"`
	VaultName     string    `json:"vault_name"`
	VaultType     string    `json:"vault_type"`
	OwnerID       int64     `json:"-"`
	SecurityLevel int       `json:"security_level"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditEntry is one append-only action trail row.
type AuditEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	SourceIP  string    `json:"source_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Users

// CreateUser inserts a new account. Returns ErrConflict when the
// username is already taken.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash, role string) (User, error) {
	var existing int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&existing)
	if err == nil {
		return User{}, fmt.Errorf("username %q: %w", username, ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("check username: %w", err)
	}

	now := time.Now()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, toMillis(now))
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("user insert id: %w", err)
	}
	return User{ID: id, Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: now.UTC()}, nil
}

// GetUserByUsername looks up an account. Returns ErrNotFound when the
// username is unknown.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var (
		user      User
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at, last_login FROM users WHERE username = ?`,
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	if lastLogin.Valid {
		user.LastLogin = fromMillis(lastLogin.Int64)
	}
	return user, nil
}

// TouchUserLogin records a successful login.
func (s *Store) TouchUserLogin(ctx context.Context, userID int64) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, toMillis(time.Now()), userID); err != nil {
		return fmt.Errorf("touch user login: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Nodes

// UpsertNode registers a node or refreshes an existing registration.
// Re-registration updates the address and liveness only; ownership,
// device type and registration time stay with the original registrant.
// The single upsert statement keeps two concurrent first registrations
// of the same node id from racing each other.
func (s *Store) UpsertNode(ctx context.Context, nodeID, ipAddress, deviceType string, ownerID int64) error {
	now := toMillis(time.Now())
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO nodes (node_id, ip_address, device_type, owner_id, registered_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET ip_address = excluded.ip_address, last_seen = ?`,
		nodeID, ipAddress, deviceType, ownerID, now, now); err != nil {
		return fmt.Errorf("upsert node: %w", err)
	}
	return nil
}

// ListNodes returns the caller's registered nodes.
func (s *Store) ListNodes(ctx context.Context, ownerID int64) ([]Node, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT node_id, ip_address, COALESCE(device_type, ''), status, registered_at, COALESCE(last_seen, 0)
		 FROM nodes WHERE owner_id = ? ORDER BY registered_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var (
			node         Node
			registeredAt int64
			lastSeen     int64
		)
		if err := rows.Scan(&node.NodeID, &node.IPAddress, &node.DeviceType, &node.Status, &registeredAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}
		node.OwnerID = ownerID
		node.RegisteredAt = fromMillis(registeredAt)
		if lastSeen > 0 {
			node.LastSeen = fromMillis(lastSeen)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// TouchNode refreshes node liveness on heartbeat. An unknown node id is
// a silent no-op: liveness metadata belongs to the node registry and a
// heartbeat is still acknowledged to the sender.
func (s *Store) TouchNode(ctx context.Context, nodeID string) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE nodes SET last_seen = ?, status = 'active' WHERE node_id = ?`,
		toMillis(time.Now()), nodeID); err != nil {
		return fmt.Errorf("touch node: %w", err)
	}
	return nil
}

// CountActiveNodes reports how many nodes are currently marked active.
func (s *Store) CountActiveNodes(ctx context.Context) (int64, error) {
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE status = 'active'`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active nodes: %w", err)
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Messages

// InsertMessage persists content that passed the gate.
func (s *Store) InsertMessage(ctx context.Context, fromNode, toNode, content string, encrypted bool) (MessageRecord, error) {
	now := time.Now()
	var to any
	if toNode != "" {
		to = toNode
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (from_node, to_node, content, encrypted, created_at) VALUES (?, ?, ?, ?, ?)`,
		fromNode, to, content, boolToInt(encrypted), toMillis(now))
	if err != nil {
		return MessageRecord{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return MessageRecord{}, fmt.Errorf("message insert id: %w", err)
	}
	return MessageRecord{
		ID:        id,
		FromNode:  fromNode,
		ToNode:    toNode,
		Content:   content,
		Encrypted: encrypted,
		Timestamp: now.UTC(),
	}, nil
}

// ListMessages returns the most recent messages, newest first.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]MessageRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, from_node, COALESCE(to_node, ''), content, encrypted, created_at, delivered
		 FROM messages ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []MessageRecord
	for rows.Next() {
		var (
			msg       MessageRecord
			encrypted int
			createdAt int64
			delivered int
		)
		if err := rows.Scan(&msg.ID, &msg.FromNode, &msg.ToNode, &msg.Content, &encrypted, &createdAt, &delivered); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Encrypted = encrypted != 0
		msg.Delivered = delivered != 0
		msg.Timestamp = fromMillis(createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkDelivered flips the optional delivery acknowledgment flag, the
// only mutation a message record permits.
func (s *Store) MarkDelivered(ctx context.Context, messageID int64) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE messages SET delivered = 1 WHERE id = ?`, messageID); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Threat log

// InsertScanRecord appends one matched-signature row to the scan audit
// trail.
func (s *Store) InsertScanRecord(ctx context.Context, rec ScanRecord) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO threat_log (threat_id, threat_type, threat_name, source_id, severity, action_taken, monetary_value, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ThreatID, rec.Type, rec.Name, rec.SourceID, rec.Severity, rec.ResponseAction,
		rec.MonetaryValue, toMillis(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("insert scan record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("scan record insert id: %w", err)
	}
	return id, nil
}

// ListScanRecords returns the most recent scan records, newest first.
func (s *Store) ListScanRecords(ctx context.Context, limit int) ([]ScanRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, threat_id, threat_type, threat_name, COALESCE(source_id, ''), COALESCE(severity, ''),
		        COALESCE(action_taken, ''), monetary_value, detected_at
		 FROM threat_log ORDER BY detected_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query threat log: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var (
			rec        ScanRecord
			detectedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.ThreatID, &rec.Type, &rec.Name, &rec.SourceID,
			&rec.Severity, &rec.ResponseAction, &rec.MonetaryValue, &detectedAt); err != nil {
			return nil, fmt.Errorf("scan threat row: %w", err)
		}
		rec.DetectedAt = fromMillis(detectedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ScanStats reports the total detection count and summed monetary
// value across the whole scan audit trail.
func (s *Store) ScanStats(ctx context.Context) (count int64, value float64, err error) {
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(monetary_value), 0) FROM threat_log`).Scan(&count, &value)
	if err != nil {
		return 0, 0, fmt.Errorf("threat stats: %w", err)
	}
	return count, value, nil
}

// ---------------------------------------------------------------------------
// Distributions

// ListDistributions returns the recipient's recent distributions,
// newest first.
func (s *Store) ListDistributions(ctx context.Context, recipientID int64, limit int) ([]Distribution, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, recipient_id, amount, COALESCE(source, ''), distributed_at
		 FROM distributions WHERE recipient_id = ? ORDER BY distributed_at DESC, id DESC LIMIT ?`,
		recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query distributions: %w", err)
	}
	defer rows.Close()

	var dists []Distribution
	for rows.Next() {
		var (
			dist          Distribution
			distributedAt int64
		)
		if err := rows.Scan(&dist.ID, &dist.RecipientID, &dist.Amount, &dist.Source, &distributedAt); err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		dist.DistributedAt = fromMillis(distributedAt)
		dists = append(dists, dist)
	}
	return dists, rows.Err()
}

// ---------------------------------------------------------------------------
// Employees and time records (thin payroll collaborator)

// InsertEmployee creates an employee owned by the calling user.
func (s *Store) InsertEmployee(ctx context.Context, emp Employee) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO employees (user_id, name, role, industry, country, hourly_rate) VALUES (?, ?, ?, ?, ?, ?)`,
		emp.UserID, emp.Name, emp.Role, emp.Industry, emp.Country, emp.HourlyRate)
	if err != nil {
		return 0, fmt.Errorf("insert employee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("employee insert id: %w", err)
	}
	return id, nil
}

// GetEmployee fetches an employee scoped to its owner. Returns
// ErrNotFound for absent or foreign rows alike.
func (s *Store) GetEmployee(ctx context.Context, employeeID, ownerID int64) (Employee, error) {
	var emp Employee
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, user_id, name, COALESCE(role, ''), COALESCE(industry, ''), country, hourly_rate, status
		 FROM employees WHERE id = ? AND user_id = ?`, employeeID, ownerID).
		Scan(&emp.ID, &emp.UserID, &emp.Name, &emp.Role, &emp.Industry, &emp.Country, &emp.HourlyRate, &emp.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, fmt.Errorf("employee %d: %w", employeeID, ErrNotFound)
	}
	if err != nil {
		return Employee{}, fmt.Errorf("query employee: %w", err)
	}
	return emp, nil
}

// ListEmployees returns every employee owned by the caller.
func (s *Store) ListEmployees(ctx context.Context, ownerID int64) ([]Employee, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, user_id, name, COALESCE(role, ''), COALESCE(industry, ''), country, hourly_rate, status
		 FROM employees WHERE user_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.UserID, &emp.Name, &emp.Role, &emp.Industry,
			&emp.Country, &emp.HourlyRate, &emp.Status); err != nil {
			return nil, fmt.Errorf("scan employee row: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// SetEmployeeStatus flips an employee between active and working.
func (s *Store) SetEmployeeStatus(ctx context.Context, employeeID int64, status string) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE employees SET status = ? WHERE id = ?`, status, employeeID); err != nil {
		return fmt.Errorf("set employee status: %w", err)
	}
	return nil
}

// OpenTimeRecord returns the employee's currently open shift, or
// ErrNotFound when none is open.
func (s *Store) OpenTimeRecord(ctx context.Context, employeeID int64) (TimeRecord, error) {
	var (
		rec     TimeRecord
		clockIn int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, employee_id, clock_in FROM time_records WHERE employee_id = ? AND clock_out IS NULL`,
		employeeID).Scan(&rec.ID, &rec.EmployeeID, &clockIn)
	if errors.Is(err, sql.ErrNoRows) {
		return TimeRecord{}, fmt.Errorf("open shift for employee %d: %w", employeeID, ErrNotFound)
	}
	if err != nil {
		return TimeRecord{}, fmt.Errorf("query open time record: %w", err)
	}
	rec.ClockIn = fromMillis(clockIn)
	return rec, nil
}

// InsertTimeRecord opens a new shift.
func (s *Store) InsertTimeRecord(ctx context.Context, employeeID int64, clockIn time.Time) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO time_records (employee_id, clock_in) VALUES (?, ?)`, employeeID, toMillis(clockIn))
	if err != nil {
		return 0, fmt.Errorf("insert time record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("time record insert id: %w", err)
	}
	return id, nil
}

// CloseTimeRecord finalizes a shift with the computed payroll figures.
func (s *Store) CloseTimeRecord(ctx context.Context, recordID int64, clockOut time.Time, hours, gross, tax, net float64) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE time_records SET clock_out = ?, hours_worked = ?, gross_pay = ?, tax_withheld = ?, net_pay = ? WHERE id = ?`,
		toMillis(clockOut), hours, gross, tax, net, recordID); err != nil {
		return fmt.Errorf("close time record: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Family members and vaults (plain keyed storage)

func (s *Store) InsertFamilyMember(ctx context.Context, member FamilyMember) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO family_members (member_name, relation, owner_id, custody_status, support_amount, notes, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		member.MemberName, member.Relation, member.OwnerID, member.CustodyStatus,
		member.SupportAmount, member.Notes, toMillis(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("insert family member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("family member insert id: %w", err)
	}
	return id, nil
}

func (s *Store) ListFamilyMembers(ctx context.Context, ownerID int64) ([]FamilyMember, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, member_name, relation, COALESCE(custody_status, ''), support_amount, COALESCE(notes, ''), added_at
		 FROM family_members WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []FamilyMember
	for rows.Next() {
		var (
			member  FamilyMember
			addedAt int64
		)
		if err := rows.Scan(&member.ID, &member.MemberName, &member.Relation,
			&member.CustodyStatus, &member.SupportAmount, &member.Notes, &addedAt); err != nil {
			return nil, fmt.Errorf("scan family row: %w", err)
		}
		member.OwnerID = ownerID
		member.AddedAt = fromMillis(addedAt)
		members = append(members, member)
	}
	return members, rows.Err()
}

func (s *Store) InsertVault(ctx context.Context, vault Vault) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO vaults (vault_name, vault_type, owner_id, security_level, created_at) VALUES (?, ?, ?, ?, ?)`,
		vault.VaultName, vault.VaultType, vault.OwnerID, vault.SecurityLevel, toMillis(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("insert vault: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("vault insert id: %w", err)
	}
	return id, nil
}

func (s *Store) ListVaults(ctx context.Context, ownerID int64) ([]Vault, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, vault_name, vault_type, security_level, created_at
		 FROM vaults WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query vaults: %w", err)
	}
	defer rows.Close()

	var vaults []Vault
	for rows.Next() {
		var (
			vault     Vault
			createdAt int64
		)
		if err := rows.Scan(&vault.ID, &vault.VaultName, &vault.VaultType, &vault.SecurityLevel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan vault row: %w", err)
		}
		vault.OwnerID = ownerID
		vault.CreatedAt = fromMillis(createdAt)
		vaults = append(vaults, vault)
	}
	return vaults, rows.Err()
}

// ---------------------------------------------------------------------------
// Audit log

// AppendAudit writes one action trail row. Audit failures are the
// caller's to log; they never block the action they describe.
func (s *Store) AppendAudit(ctx context.Context, userID int64, action, details, sourceIP string) error {
	var uid any
	if userID > 0 {
		uid = userID
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, action, details, source_ip, created_at) VALUES (?, ?, ?, ?, ?)`,
		uid, action, details, sourceIP, toMillis(time.Now())); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns the caller's most recent audit entries.
func (s *Store) ListAudit(ctx context.Context, userID int64, limit int) ([]AuditEntry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, COALESCE(user_id, 0), action, COALESCE(details, ''), COALESCE(source_ip, ''), created_at
		 FROM audit_log WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			entry     AuditEntry
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Details, &entry.SourceIP, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entry.CreatedAt = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
