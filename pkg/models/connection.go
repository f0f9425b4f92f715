// Package models holds the domain types shared across the pipeline:
// connection descriptors, schema snapshots, candidate statements, verdicts,
// results, and history entries.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// EngineKind identifies a supported database engine.
type EngineKind string

const (
	EnginePostgres EngineKind = "postgres"
	EngineMySQL    EngineKind = "mysql"
	EngineSQLite   EngineKind = "sqlite"
)

// Valid reports whether the engine kind is one this build supports.
func (k EngineKind) Valid() bool {
	switch k {
	case EnginePostgres, EngineMySQL, EngineSQLite:
		return true
	}
	return false
}

// ConnectionDescriptor carries everything needed to open a connection.
// Password is never serialized and never participates in Identity.
type ConnectionDescriptor struct {
	Engine   EngineKind `json:"engine"`
	Host     string     `json:"host,omitempty"`
	Port     int        `json:"port,omitempty"`
	User     string     `json:"user,omitempty"`
	Password string     `json:"-"`
	Database string     `json:"database,omitempty"`

	// Path is the database file for file-backed engines.
	Path string `json:"path,omitempty"`
}

// Validate checks that the descriptor names a supported engine and carries
// the fields that engine needs.
func (d ConnectionDescriptor) Validate() error {
	if !d.Engine.Valid() {
		return fmt.Errorf("unsupported engine %q", d.Engine)
	}
	if d.Engine == EngineSQLite {
		if d.Path == "" {
			return fmt.Errorf("engine %q requires a path", d.Engine)
		}
		return nil
	}
	if d.Host == "" {
		return fmt.Errorf("engine %q requires a host", d.Engine)
	}
	if d.Database == "" {
		return fmt.Errorf("engine %q requires a database", d.Engine)
	}
	return nil
}

// Identity derives a stable connection identity from the target, excluding
// credentials: rotating a password keeps caches and history attached to the
// same connection.
func (d ConnectionDescriptor) Identity() string {
	material := strings.Join([]string{
		string(d.Engine),
		strings.ToLower(d.Host),
		fmt.Sprintf("%d", d.Port),
		d.User,
		d.Database,
		d.Path,
	}, "\x00")
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:16]
}

// Redacted renders the target for logs and status output with the password
// omitted.
func (d ConnectionDescriptor) Redacted() string {
	if d.Engine == EngineSQLite {
		return fmt.Sprintf("sqlite:%s", d.Path)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", d.Engine, d.User, d.Host, d.Port, d.Database)
}
